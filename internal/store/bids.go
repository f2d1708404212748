package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// BidRepo persists subcontractor bids.
type BidRepo struct {
	db *sql.DB
}

const bidColumns = `id, company_id, project_id, company_name, trade, amount_cents,
	status, notes, created_at, updated_at`

func scanBid(scan func(dest ...any) error) (*models.SubcontractorBid, error) {
	var b models.SubcontractorBid
	err := scan(
		&b.ID, &b.CompanyID, &b.ProjectID, &b.CompanyName, &b.Trade,
		&b.AmountCents, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &b, nil
}

// Create inserts a bid.
func (r *BidRepo) Create(ctx context.Context, b *models.SubcontractorBid) error {
	now := time.Now()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BidReceived
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcontractor_bids (id, company_id, project_id, company_name, trade,
			amount_cents, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.CompanyID, b.ProjectID, b.CompanyName, b.Trade,
		b.AmountCents, b.Status, b.Notes, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a bid by ID scoped to a company.
func (r *BidRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.SubcontractorBid, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM subcontractor_bids WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanBid(row.Scan)
}

// ListByProject returns a project's bids grouped by trade.
func (r *BidRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.SubcontractorBid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM subcontractor_bids
		 WHERE project_id = $1 AND company_id = $2 ORDER BY trade, amount_cents`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var bids []*models.SubcontractorBid
	for rows.Next() {
		b, err := scanBid(rows.Scan)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// Update writes all mutable bid fields.
func (r *BidRepo) Update(ctx context.Context, b *models.SubcontractorBid) error {
	b.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE subcontractor_bids SET company_name = $1, trade = $2, amount_cents = $3,
			status = $4, notes = $5, updated_at = $6
		WHERE id = $7 AND company_id = $8`,
		b.CompanyName, b.Trade, b.AmountCents, b.Status, b.Notes, b.UpdatedAt,
		b.ID, b.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a bid.
func (r *BidRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subcontractor_bids WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete bid: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
