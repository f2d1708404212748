package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/ai"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
)

// ReportService drafts AI progress reports and manages the recurring
// schedules that drive them.
type ReportService struct {
	deps Deps
}

// activityWindow is how much recent history feeds a generated report.
const activityWindow = 50

// Generate drafts a progress report from the project's current state.
func (s *ReportService) Generate(ctx context.Context, id *auth.Identity, projectID uuid.UUID) (*ai.Report, error) {
	if !id.Can(auth.ReportsGenerate) {
		return nil, auth.ErrForbidden
	}
	report, err := s.generate(ctx, id.CompanyID, projectID)
	if err != nil {
		return nil, err
	}
	s.notifyReady(ctx, id.CompanyID, id.UserID, projectID)
	return report, nil
}

// GenerateForSchedule runs a scheduled report without an acting user.
// The worker pool calls this from the report job handler.
func (s *ReportService) GenerateForSchedule(ctx context.Context, companyID, projectID uuid.UUID) (*ai.Report, error) {
	report, err := s.generate(ctx, companyID, projectID)
	if err != nil {
		return nil, err
	}
	s.notifyReady(ctx, companyID, uuid.Nil, projectID)
	return report, nil
}

func (s *ReportService) generate(ctx context.Context, companyID, projectID uuid.UUID) (*ai.Report, error) {
	project, err := s.deps.Store.Projects.Get(ctx, companyID, projectID)
	if err != nil {
		return nil, err
	}
	phases, err := s.deps.Store.Phases.ListByProject(ctx, companyID, projectID)
	if err != nil {
		return nil, err
	}
	punch, err := s.deps.Store.PunchItems.ListByProject(ctx, companyID, projectID)
	if err != nil {
		return nil, err
	}
	open := punch[:0:0]
	for _, item := range punch {
		if item.Status != models.PunchClosed {
			open = append(open, item)
		}
	}
	history, err := s.deps.Store.Activity.ListByProject(ctx, companyID, projectID, activityWindow)
	if err != nil {
		return nil, err
	}

	return s.deps.Generator.GenerateProgressReport(ctx, ai.ReportInput{
		Project:   project,
		Phases:    phases,
		PunchOpen: open,
		Activity:  history,
	})
}

func (s *ReportService) notifyReady(ctx context.Context, companyID, actorID, projectID uuid.UUID) {
	users, err := s.deps.Store.Users.List(ctx, companyID)
	if err != nil {
		return
	}
	targets := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleAdmin || u.Role == models.RoleManager {
			targets = append(targets, u.ID)
		}
	}
	s.deps.Notifier.Fanout(ctx, actorID, targets, notify.Message{
		CompanyID:  companyID,
		Kind:       notify.KindReportReady,
		Title:      "Progress report ready",
		Body:       "A new AI progress report has been generated",
		EntityType: "project",
		EntityID:   &projectID,
	})
}

// ScheduleInput carries the client-settable schedule fields.
type ScheduleInput struct {
	Cadence    models.ReportCadence `json:"cadence"`
	HourUTC    int                  `json:"hour_utc"`
	Recipients []string             `json:"recipients"`
	Active     bool                 `json:"active"`
}

func (in ScheduleInput) validate() error {
	switch in.Cadence {
	case models.CadenceDaily, models.CadenceWeekly:
	default:
		return NewValidationErrorf("cadence", "must be DAILY or WEEKLY")
	}
	if in.HourUTC < 0 || in.HourUTC > 23 {
		return NewValidationErrorf("hour_utc", "must be between 0 and 23")
	}
	return nil
}

// CreateSchedule registers a recurring report and computes its first run.
func (s *ReportService) CreateSchedule(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in ScheduleInput) (*models.ReportSchedule, error) {
	if !id.Can(auth.ReportsGenerate) {
		return nil, auth.ErrForbidden
	}
	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	sched := &models.ReportSchedule{
		CompanyID:  id.CompanyID,
		ProjectID:  projectID,
		Cadence:    in.Cadence,
		HourUTC:    in.HourUTC,
		Recipients: in.Recipients,
		NextRunAt:  jobs.NextRun(in.Cadence, in.HourUTC, time.Now()),
		Active:     in.Active,
	}
	if err := s.deps.Store.Schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// ListSchedules returns a project's report schedules.
func (s *ReportService) ListSchedules(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.ReportSchedule, error) {
	return s.deps.Store.Schedules.ListByProject(ctx, id.CompanyID, projectID)
}

// UpdateSchedule edits a schedule and recomputes the next run.
func (s *ReportService) UpdateSchedule(ctx context.Context, id *auth.Identity, scheduleID uuid.UUID, in ScheduleInput) (*models.ReportSchedule, error) {
	if !id.Can(auth.ReportsGenerate) {
		return nil, auth.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	sched, err := s.deps.Store.Schedules.Get(ctx, id.CompanyID, scheduleID)
	if err != nil {
		return nil, err
	}

	sched.Cadence = in.Cadence
	sched.HourUTC = in.HourUTC
	sched.Recipients = in.Recipients
	sched.Active = in.Active
	sched.NextRunAt = jobs.NextRun(in.Cadence, in.HourUTC, time.Now())

	if err := s.deps.Store.Schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// DeleteSchedule removes a schedule.
func (s *ReportService) DeleteSchedule(ctx context.Context, id *auth.Identity, scheduleID uuid.UUID) error {
	if !id.Can(auth.ReportsGenerate) {
		return auth.ErrForbidden
	}
	return s.deps.Store.Schedules.Delete(ctx, id.CompanyID, scheduleID)
}

// logGenerated is used by job handlers that discard the report body.
func (s *ReportService) logGenerated(projectID uuid.UUID, report *ai.Report) {
	s.deps.Logger.Info("progress report generated",
		zap.Stringer("project", projectID),
		zap.Int("risks", len(report.Risks)),
		zap.Int("next_steps", len(report.NextSteps)))
}
