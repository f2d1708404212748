package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// WaiverRepo persists lien waivers.
type WaiverRepo struct {
	db *sql.DB
}

const waiverColumns = `id, company_id, project_id, contractor_name, amount_cents,
	waiver_type, status, document_id, sent_at, signed_at, created_at, updated_at`

func scanWaiver(scan func(dest ...any) error) (*models.LienWaiver, error) {
	var w models.LienWaiver
	err := scan(
		&w.ID, &w.CompanyID, &w.ProjectID, &w.ContractorName, &w.AmountCents,
		&w.WaiverType, &w.Status, &w.DocumentID, &w.SentAt, &w.SignedAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &w, nil
}

// Create inserts a waiver in DRAFT.
func (r *WaiverRepo) Create(ctx context.Context, w *models.LienWaiver) error {
	now := time.Now()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = models.WaiverDraft
	}
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lien_waivers (id, company_id, project_id, contractor_name, amount_cents,
			waiver_type, status, document_id, sent_at, signed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.CompanyID, w.ProjectID, w.ContractorName, w.AmountCents,
		w.WaiverType, w.Status, w.DocumentID, w.SentAt, w.SignedAt,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lien waiver: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a waiver by ID scoped to a company.
func (r *WaiverRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.LienWaiver, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+waiverColumns+` FROM lien_waivers WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanWaiver(row.Scan)
}

// ListByProject returns a project's waivers, newest first.
func (r *WaiverRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.LienWaiver, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+waiverColumns+` FROM lien_waivers
		 WHERE project_id = $1 AND company_id = $2 ORDER BY created_at DESC`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var waivers []*models.LienWaiver
	for rows.Next() {
		w, err := scanWaiver(rows.Scan)
		if err != nil {
			return nil, err
		}
		waivers = append(waivers, w)
	}
	return waivers, rows.Err()
}

// Update writes all mutable waiver fields including workflow timestamps.
func (r *WaiverRepo) Update(ctx context.Context, w *models.LienWaiver) error {
	w.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE lien_waivers SET contractor_name = $1, amount_cents = $2, waiver_type = $3,
			status = $4, document_id = $5, sent_at = $6, signed_at = $7, updated_at = $8
		WHERE id = $9 AND company_id = $10`,
		w.ContractorName, w.AmountCents, w.WaiverType, w.Status, w.DocumentID,
		w.SentAt, w.SignedAt, w.UpdatedAt, w.ID, w.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lien waiver: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// CountByStatus counts a company's waivers in one status.
func (r *WaiverRepo) CountByStatus(ctx context.Context, companyID uuid.UUID, status models.WaiverStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lien_waivers WHERE company_id = $1 AND status = $2`,
		companyID, status,
	).Scan(&count)
	if err != nil {
		return 0, ConvertDBError(err)
	}
	return count, nil
}

// Delete removes a waiver.
func (r *WaiverRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM lien_waivers WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete lien waiver: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
