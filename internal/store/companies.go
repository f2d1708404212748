package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// CompanyRepo persists tenants.
type CompanyRepo struct {
	db *sql.DB
}

// Create inserts a new company.
func (r *CompanyRepo) Create(ctx context.Context, name, plan string) (*models.Company, error) {
	now := time.Now()
	c := &models.Company{
		ID:        uuid.New(),
		Name:      name,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Plan, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company: %w", ConvertDBError(err))
	}

	return c, nil
}

// Get returns a company by ID.
func (r *CompanyRepo) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, plan, created_at, updated_at
		FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Plan, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &c, nil
}
