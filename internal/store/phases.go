package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// PhaseRepo persists scheduling phases.
type PhaseRepo struct {
	db *sql.DB
}

const phaseColumns = `id, company_id, project_id, name, position, starts_on, ends_on,
	status, started_at, completed_at, created_at, updated_at`

func scanPhase(scan func(dest ...any) error) (*models.Phase, error) {
	var p models.Phase
	err := scan(
		&p.ID, &p.CompanyID, &p.ProjectID, &p.Name, &p.Position,
		&p.StartsOn, &p.EndsOn, &p.Status, &p.StartedAt, &p.CompletedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &p, nil
}

// Create inserts a new phase at the end of the project's Gantt order.
func (r *PhaseRepo) Create(ctx context.Context, p *models.Phase) error {
	now := time.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PhaseNotStarted
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO phases (id, company_id, project_id, name, position, starts_on, ends_on,
			status, started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4,
			COALESCE((SELECT MAX(position) + 1 FROM phases WHERE project_id = $3), 0),
			$5, $6, $7, $8, $9, $10, $11)
		RETURNING position`,
		p.ID, p.CompanyID, p.ProjectID, p.Name, p.StartsOn, p.EndsOn,
		p.Status, p.StartedAt, p.CompletedAt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.Position)
	if err != nil {
		return fmt.Errorf("failed to insert phase: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a phase by ID scoped to a company.
func (r *PhaseRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Phase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+phaseColumns+` FROM phases WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanPhase(row.Scan)
}

// ListByProject returns a project's phases in Gantt order.
func (r *PhaseRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.Phase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+phaseColumns+` FROM phases
		 WHERE project_id = $1 AND company_id = $2 ORDER BY position`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var phases []*models.Phase
	for rows.Next() {
		p, err := scanPhase(rows.Scan)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// Update writes the schedulable fields (name, dates, position).
func (r *PhaseRepo) Update(ctx context.Context, p *models.Phase) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE phases SET name = $1, position = $2, starts_on = $3, ends_on = $4, updated_at = $5
		WHERE id = $6 AND company_id = $7`,
		p.Name, p.Position, p.StartsOn, p.EndsOn, p.UpdatedAt, p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// SetStatus writes a status transition together with its timestamps.
func (r *PhaseRepo) SetStatus(ctx context.Context, p *models.Phase) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE phases SET status = $1, started_at = $2, completed_at = $3, updated_at = $4
		WHERE id = $5 AND company_id = $6`,
		p.Status, p.StartedAt, p.CompletedAt, p.UpdatedAt, p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to set phase status: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a phase.
func (r *PhaseRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM phases WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete phase: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// AssignmentRepo persists phase staffing.
type AssignmentRepo struct {
	db *sql.DB
}

// Assign adds a user to a phase. The partial unique index on OWNER rows
// rejects a second owner; callers see ErrUniqueViolation.
func (r *AssignmentRepo) Assign(ctx context.Context, a *models.PhaseAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phase_assignments (id, company_id, phase_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CompanyID, a.PhaseID, a.UserID, a.Role, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to assign user to phase: %w", ConvertDBError(err))
	}
	return nil
}

// ListByPhase returns the assignments for one phase.
func (r *AssignmentRepo) ListByPhase(ctx context.Context, companyID, phaseID uuid.UUID) ([]*models.PhaseAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, phase_id, user_id, role, created_at
		FROM phase_assignments WHERE phase_id = $1 AND company_id = $2
		ORDER BY role, created_at`,
		phaseID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.PhaseAssignment
	for rows.Next() {
		var a models.PhaseAssignment
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.PhaseID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Remove deletes an assignment.
func (r *AssignmentRepo) Remove(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM phase_assignments WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove assignment: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// IsUserAssigned reports whether the user holds any assignment on the phase.
func (r *AssignmentRepo) IsUserAssigned(ctx context.Context, phaseID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM phase_assignments WHERE phase_id = $1 AND user_id = $2
		)`,
		phaseID, userID,
	).Scan(&exists)
	if err != nil {
		return false, ConvertDBError(err)
	}
	return exists, nil
}
