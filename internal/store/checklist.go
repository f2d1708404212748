package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// ChecklistRepo persists phase checklist items.
type ChecklistRepo struct {
	db *sql.DB
}

const checklistColumns = `id, company_id, phase_id, body, done, done_by, done_at,
	position, created_at, updated_at`

func scanChecklistItem(scan func(dest ...any) error) (*models.ChecklistItem, error) {
	var c models.ChecklistItem
	err := scan(
		&c.ID, &c.CompanyID, &c.PhaseID, &c.Body, &c.Done, &c.DoneBy, &c.DoneAt,
		&c.Position, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &c, nil
}

// Create inserts an item at the end of the phase checklist.
func (r *ChecklistRepo) Create(ctx context.Context, c *models.ChecklistItem) error {
	now := time.Now()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO checklist_items (id, company_id, phase_id, body, done, done_by, done_at,
			position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			COALESCE((SELECT MAX(position) + 1 FROM checklist_items WHERE phase_id = $3), 0),
			$8, $9)
		RETURNING position`,
		c.ID, c.CompanyID, c.PhaseID, c.Body, c.Done, c.DoneBy, c.DoneAt,
		c.CreatedAt, c.UpdatedAt,
	).Scan(&c.Position)
	if err != nil {
		return fmt.Errorf("failed to insert checklist item: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns an item by ID scoped to a company.
func (r *ChecklistRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.ChecklistItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+checklistColumns+` FROM checklist_items WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanChecklistItem(row.Scan)
}

// ListByPhase returns a phase's checklist in order.
func (r *ChecklistRepo) ListByPhase(ctx context.Context, companyID, phaseID uuid.UUID) ([]*models.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+checklistColumns+` FROM checklist_items
		 WHERE phase_id = $1 AND company_id = $2 ORDER BY position`,
		phaseID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var items []*models.ChecklistItem
	for rows.Next() {
		c, err := scanChecklistItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// SetDone toggles the done flag, stamping or clearing who and when.
func (r *ChecklistRepo) SetDone(ctx context.Context, c *models.ChecklistItem) error {
	c.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE checklist_items SET done = $1, done_by = $2, done_at = $3, updated_at = $4
		WHERE id = $5 AND company_id = $6`,
		c.Done, c.DoneBy, c.DoneAt, c.UpdatedAt, c.ID, c.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle checklist item: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// UpdateBody rewrites the item text.
func (r *ChecklistRepo) UpdateBody(ctx context.Context, c *models.ChecklistItem) error {
	c.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE checklist_items SET body = $1, updated_at = $2
		WHERE id = $3 AND company_id = $4`,
		c.Body, c.UpdatedAt, c.ID, c.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update checklist item: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes an item.
func (r *ChecklistRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM checklist_items WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete checklist item: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
