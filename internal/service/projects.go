package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

// ProjectService owns project CRUD and the cached dashboard summary.
type ProjectService struct {
	deps Deps
}

// ProjectInput carries the client-settable project fields.
type ProjectInput struct {
	Name        string               `json:"name"`
	Address     string               `json:"address"`
	ClientName  string               `json:"client_name"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   *time.Time           `json:"start_date"`
	TargetEnd   *time.Time           `json:"target_end"`
	BudgetCents int64                `json:"budget_cents"`
}

// Create inserts a project and records the creation.
func (s *ProjectService) Create(ctx context.Context, id *auth.Identity, in ProjectInput) (*models.Project, error) {
	if !id.Can(auth.ProjectsCreate) {
		return nil, auth.ErrForbidden
	}

	status := in.Status
	if status == "" {
		status = models.ProjectPlanning
	}

	p := &models.Project{
		CompanyID:   id.CompanyID,
		Name:        in.Name,
		Address:     in.Address,
		ClientName:  in.ClientName,
		Status:      status,
		StartDate:   in.StartDate,
		TargetEnd:   in.TargetEnd,
		BudgetCents: in.BudgetCents,
	}
	if err := s.deps.Store.Projects.Create(ctx, p); err != nil {
		return nil, err
	}

	s.deps.Recorder.Record(ctx, activity.Entry(
		id.CompanyID, &p.ID, id.UserID, activity.ActionProjectCreated, "project", p.ID))

	return p, nil
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id *auth.Identity, projectID uuid.UUID) (*models.Project, error) {
	return s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID)
}

// List returns the company's projects.
func (s *ProjectService) List(ctx context.Context, id *auth.Identity) ([]*models.Project, error) {
	return s.deps.Store.Projects.List(ctx, id.CompanyID)
}

// Update writes the mutable fields, recording old values for undo.
func (s *ProjectService) Update(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in ProjectInput) (*models.Project, error) {
	if !id.Can(auth.ProjectsUpdate) {
		return nil, auth.ErrForbidden
	}

	p, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{
		"name":         p.Name,
		"address":      p.Address,
		"client_name":  p.ClientName,
		"status":       string(p.Status),
		"budget_cents": p.BudgetCents,
	}

	p.Name = in.Name
	p.Address = in.Address
	p.ClientName = in.ClientName
	if in.Status != "" {
		p.Status = in.Status
	}
	p.StartDate = in.StartDate
	p.TargetEnd = in.TargetEnd
	p.BudgetCents = in.BudgetCents

	if err := s.deps.Store.Projects.Update(ctx, p); err != nil {
		return nil, err
	}

	entry := activity.Entry(id.CompanyID, &p.ID, id.UserID, activity.ActionProjectUpdated, "project", p.ID)
	entry.OldValues = old
	entry.NewValues = map[string]any{
		"name":         p.Name,
		"address":      p.Address,
		"client_name":  p.ClientName,
		"status":       string(p.Status),
		"budget_cents": p.BudgetCents,
	}
	s.deps.Recorder.Record(ctx, entry)

	s.invalidate(ctx, id.CompanyID, p.ID)
	return p, nil
}

// Delete removes a project and everything under it. Admin only.
func (s *ProjectService) Delete(ctx context.Context, id *auth.Identity, projectID uuid.UUID) error {
	if !id.Can(auth.ProjectsDelete) {
		return auth.ErrForbidden
	}

	if err := s.deps.Store.Projects.Delete(ctx, id.CompanyID, projectID); err != nil {
		return err
	}

	s.deps.Recorder.Record(ctx, activity.Entry(
		id.CompanyID, &projectID, id.UserID, activity.ActionProjectDeleted, "project", projectID))

	s.invalidate(ctx, id.CompanyID, projectID)
	return nil
}

// Summary returns the dashboard rollup, served from cache when warm.
func (s *ProjectService) Summary(ctx context.Context, id *auth.Identity, projectID uuid.UUID) (*store.Summary, error) {
	key := cache.ProjectSummaryKey(id.CompanyID, projectID)

	if data, err := s.deps.Cache.Get(ctx, key); err == nil {
		var summary store.Summary
		if err := json.Unmarshal(data, &summary); err == nil {
			return &summary, nil
		}
	}

	summary, err := s.deps.Store.Projects.Summarize(ctx, id.CompanyID, projectID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(summary); err == nil {
		if err := s.deps.Cache.Set(ctx, key, data, 2*time.Minute); err != nil {
			s.deps.Logger.Debug("summary cache write failed", zap.Error(err))
		}
	}

	return summary, nil
}

func (s *ProjectService) invalidate(ctx context.Context, companyID, projectID uuid.UUID) {
	if err := cache.InvalidateProject(ctx, s.deps.Cache, companyID, projectID); err != nil {
		s.deps.Logger.Debug("cache invalidation failed",
			zap.Stringer("project", projectID), zap.Error(err))
	}
}

// Activity returns the recent audit entries for a project.
func (s *ProjectService) Activity(ctx context.Context, id *auth.Identity, projectID uuid.UUID, limit int) ([]*models.ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.deps.Store.Activity.ListByProject(ctx, id.CompanyID, projectID, limit)
}
