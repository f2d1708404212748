package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/beamline/beamline/internal/models"
)

// ScheduleRepo persists recurring report schedules.
type ScheduleRepo struct {
	db *sql.DB
}

const scheduleColumns = `id, company_id, project_id, cadence, hour_utc, recipients,
	last_run_at, next_run_at, active, created_at, updated_at`

func scanSchedule(scan func(dest ...any) error) (*models.ReportSchedule, error) {
	var s models.ReportSchedule
	err := scan(
		&s.ID, &s.CompanyID, &s.ProjectID, &s.Cadence, &s.HourUTC,
		pq.Array(&s.Recipients), &s.LastRunAt, &s.NextRunAt, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &s, nil
}

// Create inserts a schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *models.ReportSchedule) error {
	now := time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_schedules (id, company_id, project_id, cadence, hour_utc,
			recipients, last_run_at, next_run_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.CompanyID, s.ProjectID, s.Cadence, s.HourUTC,
		pq.Array(s.Recipients), s.LastRunAt, s.NextRunAt, s.Active,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report schedule: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a schedule by ID scoped to a company.
func (r *ScheduleRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.ReportSchedule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM report_schedules WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanSchedule(row.Scan)
}

// ListByProject returns the schedules attached to a project.
func (r *ScheduleRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.ReportSchedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM report_schedules
		 WHERE project_id = $1 AND company_id = $2 ORDER BY created_at`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.ReportSchedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListDue returns active schedules whose next run is at or before now.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]*models.ReportSchedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM report_schedules
		 WHERE active AND next_run_at <= $1 ORDER BY next_run_at`,
		now,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.ReportSchedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes cadence, hour, recipients and the active flag.
func (r *ScheduleRepo) Update(ctx context.Context, s *models.ReportSchedule) error {
	s.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_schedules SET cadence = $1, hour_utc = $2, recipients = $3,
			next_run_at = $4, active = $5, updated_at = $6
		WHERE id = $7 AND company_id = $8`,
		s.Cadence, s.HourUTC, pq.Array(s.Recipients), s.NextRunAt, s.Active,
		s.UpdatedAt, s.ID, s.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report schedule: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// AdvanceRun stamps last_run_at and moves next_run_at forward after a tick.
func (r *ScheduleRepo) AdvanceRun(ctx context.Context, id uuid.UUID, lastRun, nextRun time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_schedules SET last_run_at = $1, next_run_at = $2, updated_at = $3
		WHERE id = $4`,
		lastRun, nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to advance report schedule: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a schedule.
func (r *ScheduleRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM report_schedules WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete report schedule: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
