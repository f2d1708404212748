package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// ProjectRepo persists projects.
type ProjectRepo struct {
	db *sql.DB
}

const projectColumns = `id, company_id, name, address, client_name, status,
	start_date, target_end, budget_cents, created_at, updated_at`

// Create inserts a new project.
func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	now := time.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, company_id, name, address, client_name, status,
			start_date, target_end, budget_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.CompanyID, p.Name, p.Address, p.ClientName, p.Status,
		p.StartDate, p.TargetEnd, p.BudgetCents, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a project by ID scoped to a company.
func (r *ProjectRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.ClientName, &p.Status,
		&p.StartDate, &p.TargetEnd, &p.BudgetCents, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &p, nil
}

// List returns all of a company's projects, newest first.
func (r *ProjectRepo) List(ctx context.Context, companyID uuid.UUID) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE company_id = $1 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.ClientName, &p.Status,
			&p.StartDate, &p.TargetEnd, &p.BudgetCents, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// Update writes the mutable project fields. Last write wins.
func (r *ProjectRepo) Update(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = $1, address = $2, client_name = $3, status = $4,
			start_date = $5, target_end = $6, budget_cents = $7, updated_at = $8
		WHERE id = $9 AND company_id = $10`,
		p.Name, p.Address, p.ClientName, p.Status,
		p.StartDate, p.TargetEnd, p.BudgetCents, p.UpdatedAt,
		p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a project and, via cascades, everything under it.
func (r *ProjectRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Summary is the dashboard rollup for one project.
type Summary struct {
	ProjectID      uuid.UUID `json:"project_id"`
	PhaseTotal     int       `json:"phase_total"`
	PhaseDone      int       `json:"phase_done"`
	PunchOpen      int       `json:"punch_open"`
	DocumentCount  int       `json:"document_count"`
	PhotoCount     int       `json:"photo_count"`
	BudgetCents    int64     `json:"budget_cents"`
	ApprovedCents  int64     `json:"approved_cents"`
}

// Summarize computes the project rollup used by the dashboard cache.
func (r *ProjectRepo) Summarize(ctx context.Context, companyID, id uuid.UUID) (*Summary, error) {
	s := &Summary{ProjectID: id}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.budget_cents,
			(SELECT COUNT(*) FROM phases WHERE project_id = p.id),
			(SELECT COUNT(*) FROM phases WHERE project_id = p.id AND status = 'DONE'),
			(SELECT COUNT(*) FROM punch_list_items WHERE project_id = p.id AND status <> 'CLOSED'),
			(SELECT COUNT(*) FROM documents WHERE project_id = p.id),
			(SELECT COUNT(*) FROM photos WHERE project_id = p.id),
			(SELECT COALESCE(SUM(amount_approved_cents), 0) FROM payment_applications
				WHERE project_id = p.id AND status IN ('APPROVED', 'PAID'))
		FROM projects p WHERE p.id = $1 AND p.company_id = $2`,
		id, companyID,
	).Scan(
		&s.BudgetCents, &s.PhaseTotal, &s.PhaseDone, &s.PunchOpen,
		&s.DocumentCount, &s.PhotoCount, &s.ApprovedCents,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return s, nil
}
