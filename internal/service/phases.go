package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/workflow"
)

// PhaseService owns phase CRUD, the status machine, assignments, and the
// Gantt schedule feed.
type PhaseService struct {
	deps Deps
}

// PhaseInput carries the client-settable phase fields.
type PhaseInput struct {
	Name     string     `json:"name"`
	StartsOn *time.Time `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on"`
}

// Create appends a phase at the end of the project's ordering.
func (s *PhaseService) Create(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in PhaseInput) (*models.Phase, error) {
	if !id.Can(auth.PhasesManage) {
		return nil, auth.ErrForbidden
	}

	// Verify the project exists inside this tenant before inserting.
	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}

	p := &models.Phase{
		CompanyID: id.CompanyID,
		ProjectID: projectID,
		Name:      in.Name,
		StartsOn:  in.StartsOn,
		EndsOn:    in.EndsOn,
		Status:    models.PhaseNotStarted,
	}
	if err := s.deps.Store.Phases.Create(ctx, p); err != nil {
		return nil, err
	}

	s.deps.Recorder.Record(ctx, activity.Entry(
		id.CompanyID, &projectID, id.UserID, activity.ActionPhaseCreated, "phase", p.ID))

	s.invalidate(ctx, id.CompanyID, projectID)
	return p, nil
}

// Get returns one phase.
func (s *PhaseService) Get(ctx context.Context, id *auth.Identity, phaseID uuid.UUID) (*models.Phase, error) {
	return s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID)
}

// List returns a project's phases in position order.
func (s *PhaseService) List(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.Phase, error) {
	return s.deps.Store.Phases.ListByProject(ctx, id.CompanyID, projectID)
}

// Update writes name and dates. Status changes go through Transition.
func (s *PhaseService) Update(ctx context.Context, id *auth.Identity, phaseID uuid.UUID, in PhaseInput) (*models.Phase, error) {
	if !id.Can(auth.PhasesManage) {
		return nil, auth.ErrForbidden
	}

	p, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.StartsOn = in.StartsOn
	p.EndsOn = in.EndsOn

	if err := s.deps.Store.Phases.Update(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id.CompanyID, p.ProjectID)
	return p, nil
}

// Delete removes a phase.
func (s *PhaseService) Delete(ctx context.Context, id *auth.Identity, phaseID uuid.UUID) error {
	if !id.Can(auth.PhasesManage) {
		return auth.ErrForbidden
	}

	p, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID)
	if err != nil {
		return err
	}

	if err := s.deps.Store.Phases.Delete(ctx, id.CompanyID, phaseID); err != nil {
		return err
	}

	s.invalidate(ctx, id.CompanyID, p.ProjectID)
	return nil
}

// Transition moves a phase through the status machine, records the change
// with its old value for undo, and notifies the phase's assignees.
func (s *PhaseService) Transition(ctx context.Context, id *auth.Identity, phaseID uuid.UUID, to models.PhaseStatus) (*models.Phase, error) {
	p, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID)
	if err != nil {
		return nil, err
	}

	from := p.Status
	oldStarted, oldCompleted := p.StartedAt, p.CompletedAt
	if err := workflow.Transition(p, to, id); err != nil {
		return nil, err
	}

	if err := s.deps.Store.Phases.SetStatus(ctx, p); err != nil {
		return nil, err
	}

	// The transition may stamp started_at or completed_at, so both go into
	// old_values alongside the status or undo would null them out.
	entry := activity.Entry(id.CompanyID, &p.ProjectID, id.UserID, activity.ActionPhaseStatusChanged, "phase", p.ID)
	entry.OldValues = map[string]any{
		"status":       string(from),
		"started_at":   activity.TimeField(oldStarted),
		"completed_at": activity.TimeField(oldCompleted),
	}
	entry.NewValues = map[string]any{
		"status":       string(to),
		"started_at":   activity.TimeField(p.StartedAt),
		"completed_at": activity.TimeField(p.CompletedAt),
	}
	s.deps.Recorder.Record(ctx, entry)

	s.notifyAssignees(ctx, id, p, from, to)
	s.invalidate(ctx, id.CompanyID, p.ProjectID)
	return p, nil
}

func (s *PhaseService) notifyAssignees(ctx context.Context, id *auth.Identity, p *models.Phase, from, to models.PhaseStatus) {
	assignments, err := s.deps.Store.Assignments.ListByPhase(ctx, id.CompanyID, p.ID)
	if err != nil {
		s.deps.Logger.Warn("failed to list assignees for notification", zap.Error(err))
		return
	}

	userIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		userIDs = append(userIDs, a.UserID)
	}

	s.deps.Notifier.Fanout(ctx, id.UserID, userIDs, notify.Message{
		CompanyID:  id.CompanyID,
		Kind:       notify.KindPhaseStatus,
		Title:      fmt.Sprintf("Phase %q moved to %s", p.Name, to),
		Body:       fmt.Sprintf("Status changed from %s to %s", from, to),
		EntityType: "phase",
		EntityID:   &p.ID,
	})
}

// Assign links a user to a phase. The single-owner rule is checked here
// and backed by a partial unique index in the database.
func (s *PhaseService) Assign(ctx context.Context, id *auth.Identity, phaseID, userID uuid.UUID, role models.AssignmentRole) (*models.PhaseAssignment, error) {
	if !id.Can(auth.PhasesManage) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID); err != nil {
		return nil, err
	}
	if _, err := s.deps.Store.Users.Get(ctx, id.CompanyID, userID); err != nil {
		return nil, err
	}

	if role == models.AssignmentOwner {
		existing, err := s.deps.Store.Assignments.ListByPhase(ctx, id.CompanyID, phaseID)
		if err != nil {
			return nil, err
		}
		for _, a := range existing {
			if a.Role == models.AssignmentOwner {
				return nil, fmt.Errorf("phase already has an owner: %w", store.ErrUniqueViolation)
			}
		}
	}

	a := &models.PhaseAssignment{
		CompanyID: id.CompanyID,
		PhaseID:   phaseID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.deps.Store.Assignments.Assign(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Unassign removes an assignment.
func (s *PhaseService) Unassign(ctx context.Context, id *auth.Identity, assignmentID uuid.UUID) error {
	if !id.Can(auth.PhasesManage) {
		return auth.ErrForbidden
	}
	return s.deps.Store.Assignments.Remove(ctx, id.CompanyID, assignmentID)
}

// Assignments lists a phase's assignments.
func (s *PhaseService) Assignments(ctx context.Context, id *auth.Identity, phaseID uuid.UUID) ([]*models.PhaseAssignment, error) {
	return s.deps.Store.Assignments.ListByPhase(ctx, id.CompanyID, phaseID)
}

// ScheduleRow is one Gantt bar in the project schedule feed.
type ScheduleRow struct {
	PhaseID     uuid.UUID          `json:"phase_id"`
	Name        string             `json:"name"`
	Position    int                `json:"position"`
	Status      models.PhaseStatus `json:"status"`
	StartsOn    *time.Time         `json:"starts_on,omitempty"`
	EndsOn      *time.Time         `json:"ends_on,omitempty"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Overdue     bool               `json:"overdue"`
}

// Schedule returns the Gantt feed for a project, cached briefly because
// dashboards poll it.
func (s *PhaseService) Schedule(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*ScheduleRow, error) {
	key := cache.ScheduleFeedKey(id.CompanyID, projectID)

	if data, err := s.deps.Cache.Get(ctx, key); err == nil {
		var rows []*ScheduleRow
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}

	phases, err := s.deps.Store.Phases.ListByProject(ctx, id.CompanyID, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]*ScheduleRow, 0, len(phases))
	for _, p := range phases {
		rows = append(rows, &ScheduleRow{
			PhaseID:     p.ID,
			Name:        p.Name,
			Position:    p.Position,
			Status:      p.Status,
			StartsOn:    p.StartsOn,
			EndsOn:      p.EndsOn,
			StartedAt:   p.StartedAt,
			CompletedAt: p.CompletedAt,
			Overdue:     p.EndsOn != nil && p.EndsOn.Before(now) && p.Status != models.PhaseDone,
		})
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := s.deps.Cache.Set(ctx, key, data, time.Minute); err != nil {
			s.deps.Logger.Debug("schedule cache write failed", zap.Error(err))
		}
	}

	return rows, nil
}

func (s *PhaseService) invalidate(ctx context.Context, companyID, projectID uuid.UUID) {
	if err := cache.InvalidateProject(ctx, s.deps.Cache, companyID, projectID); err != nil {
		s.deps.Logger.Debug("cache invalidation failed",
			zap.Stringer("project", projectID), zap.Error(err))
	}
}
