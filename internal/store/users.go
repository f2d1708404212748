package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// UserRepo persists company members.
type UserRepo struct {
	db *sql.DB
}

const userColumns = `id, company_id, email, password_hash, name, role, active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.Email, &u.PasswordHash, &u.Name,
		&u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &u, nil
}

// Create inserts a new user. Email must be unique within the company.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, company_id, email, password_hash, name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.CompanyID, u.Email, u.PasswordHash, u.Name, u.Role, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a user by ID scoped to a company.
func (r *UserRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanUser(row)
}

// GetByEmail looks a user up for login. Not company-scoped: email plus
// password is the identity proof here.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND active`,
		email,
	)
	return scanUser(row)
}

// List returns all users in a company ordered by name.
func (r *UserRepo) List(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE company_id = $1 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.CompanyID, &u.Email, &u.PasswordHash, &u.Name,
			&u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Update writes name, role and active flag.
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $1, role = $2, active = $3, updated_at = $4
		WHERE id = $5 AND company_id = $6`,
		u.Name, u.Role, u.Active, u.UpdatedAt, u.ID, u.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
