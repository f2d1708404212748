package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// PayAppRepo persists payment applications.
type PayAppRepo struct {
	db *sql.DB
}

const payAppColumns = `id, company_id, project_id, period_start, period_end,
	amount_requested_cents, amount_approved_cents, status,
	submitted_at, decided_at, decided_by, created_at, updated_at`

func scanPayApp(scan func(dest ...any) error) (*models.PaymentApplication, error) {
	var a models.PaymentApplication
	err := scan(
		&a.ID, &a.CompanyID, &a.ProjectID, &a.PeriodStart, &a.PeriodEnd,
		&a.AmountRequestedCents, &a.AmountApprovedCents, &a.Status,
		&a.SubmittedAt, &a.DecidedAt, &a.DecidedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &a, nil
}

// Create inserts a payment application in DRAFT.
func (r *PayAppRepo) Create(ctx context.Context, a *models.PaymentApplication) error {
	now := time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.PayAppDraft
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_applications (id, company_id, project_id, period_start, period_end,
			amount_requested_cents, amount_approved_cents, status,
			submitted_at, decided_at, decided_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.CompanyID, a.ProjectID, a.PeriodStart, a.PeriodEnd,
		a.AmountRequestedCents, a.AmountApprovedCents, a.Status,
		a.SubmittedAt, a.DecidedAt, a.DecidedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment application: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a payment application by ID scoped to a company.
func (r *PayAppRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.PaymentApplication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+payAppColumns+` FROM payment_applications WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanPayApp(row.Scan)
}

// ListByProject returns a project's payment applications by period.
func (r *PayAppRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.PaymentApplication, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+payAppColumns+` FROM payment_applications
		 WHERE project_id = $1 AND company_id = $2 ORDER BY period_start DESC`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var apps []*models.PaymentApplication
	for rows.Next() {
		a, err := scanPayApp(rows.Scan)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// Update writes all mutable fields including workflow stamps.
func (r *PayAppRepo) Update(ctx context.Context, a *models.PaymentApplication) error {
	a.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_applications SET period_start = $1, period_end = $2,
			amount_requested_cents = $3, amount_approved_cents = $4, status = $5,
			submitted_at = $6, decided_at = $7, decided_by = $8, updated_at = $9
		WHERE id = $10 AND company_id = $11`,
		a.PeriodStart, a.PeriodEnd, a.AmountRequestedCents, a.AmountApprovedCents,
		a.Status, a.SubmittedAt, a.DecidedAt, a.DecidedBy, a.UpdatedAt,
		a.ID, a.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment application: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// CountByStatus counts a company's payment applications in one status.
func (r *PayAppRepo) CountByStatus(ctx context.Context, companyID uuid.UUID, status models.PayAppStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_applications WHERE company_id = $1 AND status = $2`,
		companyID, status,
	).Scan(&count)
	if err != nil {
		return 0, ConvertDBError(err)
	}
	return count, nil
}

// Delete removes a payment application.
func (r *PayAppRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM payment_applications WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete payment application: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
