package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// PunchListRepo persists closeout deficiency items.
type PunchListRepo struct {
	db *sql.DB
}

const punchColumns = `id, company_id, project_id, title, description, status,
	assignee_id, due_on, closed_at, created_at, updated_at`

func scanPunchItem(scan func(dest ...any) error) (*models.PunchListItem, error) {
	var p models.PunchListItem
	err := scan(
		&p.ID, &p.CompanyID, &p.ProjectID, &p.Title, &p.Description, &p.Status,
		&p.AssigneeID, &p.DueOn, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &p, nil
}

// Create inserts a punch item.
func (r *PunchListRepo) Create(ctx context.Context, p *models.PunchListItem) error {
	now := time.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PunchOpen
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO punch_list_items (id, company_id, project_id, title, description, status,
			assignee_id, due_on, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.CompanyID, p.ProjectID, p.Title, p.Description, p.Status,
		p.AssigneeID, p.DueOn, p.ClosedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert punch item: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a punch item by ID scoped to a company.
func (r *PunchListRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.PunchListItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+punchColumns+` FROM punch_list_items WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanPunchItem(row.Scan)
}

// ListByProject returns a project's punch list, open items first.
func (r *PunchListRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.PunchListItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+punchColumns+` FROM punch_list_items
		 WHERE project_id = $1 AND company_id = $2
		 ORDER BY (status = 'CLOSED'), due_on NULLS LAST, created_at`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var items []*models.PunchListItem
	for rows.Next() {
		p, err := scanPunchItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Update writes all mutable punch item fields.
func (r *PunchListRepo) Update(ctx context.Context, p *models.PunchListItem) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE punch_list_items SET title = $1, description = $2, status = $3,
			assignee_id = $4, due_on = $5, closed_at = $6, updated_at = $7
		WHERE id = $8 AND company_id = $9`,
		p.Title, p.Description, p.Status, p.AssigneeID, p.DueOn, p.ClosedAt,
		p.UpdatedAt, p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update punch item: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a punch item.
func (r *PunchListRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM punch_list_items WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete punch item: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// CountOpen returns the number of unresolved items on a project.
func (r *PunchListRepo) CountOpen(ctx context.Context, companyID, projectID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM punch_list_items
		WHERE project_id = $1 AND company_id = $2 AND status <> 'CLOSED'`,
		projectID, companyID,
	).Scan(&n)
	if err != nil {
		return 0, ConvertDBError(err)
	}
	return n, nil
}
