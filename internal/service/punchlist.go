package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/workflow"
)

// PunchListService manages deficiency items on a project.
type PunchListService struct {
	deps Deps
}

// PunchItemInput carries the client-settable punch item fields.
type PunchItemInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	DueOn       *time.Time `json:"due_on"`
}

// Create opens a new punch item on a project.
func (s *PunchListService) Create(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in PunchItemInput) (*models.PunchListItem, error) {
	if !id.Can(auth.PunchListUpdate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}

	item := &models.PunchListItem{
		CompanyID:   id.CompanyID,
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.PunchOpen,
		AssigneeID:  in.AssigneeID,
		DueOn:       in.DueOn,
	}
	if err := s.deps.Store.PunchItems.Create(ctx, item); err != nil {
		return nil, err
	}

	s.deps.Recorder.Record(ctx, activity.Entry(
		id.CompanyID, &projectID, id.UserID, activity.ActionPunchItemUpdated, "punch_item", item.ID))

	s.notifyAssignee(ctx, id, item, "New punch item assigned to you")
	return item, nil
}

// Get returns one punch item.
func (s *PunchListService) Get(ctx context.Context, id *auth.Identity, itemID uuid.UUID) (*models.PunchListItem, error) {
	return s.deps.Store.PunchItems.Get(ctx, id.CompanyID, itemID)
}

// List returns a project's punch items.
func (s *PunchListService) List(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.PunchListItem, error) {
	return s.deps.Store.PunchItems.ListByProject(ctx, id.CompanyID, projectID)
}

// Update edits an item's fields and optionally moves its status. Closing
// is a separate gated operation.
func (s *PunchListService) Update(ctx context.Context, id *auth.Identity, itemID uuid.UUID, in PunchItemInput, status *models.PunchStatus) (*models.PunchListItem, error) {
	if !id.Can(auth.PunchListUpdate) {
		return nil, auth.ErrForbidden
	}

	item, err := s.deps.Store.PunchItems.Get(ctx, id.CompanyID, itemID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{
		"title":       item.Title,
		"description": item.Description,
		"status":      string(item.Status),
		"assignee_id": activity.UUIDField(item.AssigneeID),
		"due_on":      activity.TimeField(item.DueOn),
	}

	reassigned := in.AssigneeID != nil &&
		(item.AssigneeID == nil || *item.AssigneeID != *in.AssigneeID)

	item.Title = in.Title
	item.Description = in.Description
	item.AssigneeID = in.AssigneeID
	item.DueOn = in.DueOn

	if status != nil && *status != item.Status {
		if *status == models.PunchClosed {
			return nil, workflow.ErrInvalidTransition
		}
		item.Status = *status
	}

	if err := s.deps.Store.PunchItems.Update(ctx, item); err != nil {
		return nil, err
	}

	entry := activity.Entry(id.CompanyID, &item.ProjectID, id.UserID, activity.ActionPunchItemUpdated, "punch_item", item.ID)
	entry.OldValues = old
	entry.NewValues = map[string]any{
		"title":       item.Title,
		"description": item.Description,
		"status":      string(item.Status),
		"assignee_id": activity.UUIDField(item.AssigneeID),
		"due_on":      activity.TimeField(item.DueOn),
	}
	s.deps.Recorder.Record(ctx, entry)

	if reassigned {
		s.notifyAssignee(ctx, id, item, "Punch item assigned to you")
	}
	return item, nil
}

// Close moves an item from READY_FOR_REVIEW to CLOSED. Only reviewers
// with the close permission may do this.
func (s *PunchListService) Close(ctx context.Context, id *auth.Identity, itemID uuid.UUID) (*models.PunchListItem, error) {
	if !id.Can(auth.PunchListClose) {
		return nil, auth.ErrForbidden
	}

	item, err := s.deps.Store.PunchItems.Get(ctx, id.CompanyID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status != models.PunchReadyForReview {
		return nil, workflow.ErrInvalidTransition
	}

	old := map[string]any{"status": string(item.Status)}
	now := time.Now()
	item.Status = models.PunchClosed
	item.ClosedAt = &now

	if err := s.deps.Store.PunchItems.Update(ctx, item); err != nil {
		return nil, err
	}

	entry := activity.Entry(id.CompanyID, &item.ProjectID, id.UserID, activity.ActionPunchItemUpdated, "punch_item", item.ID)
	entry.OldValues = old
	entry.NewValues = map[string]any{"status": string(item.Status)}
	s.deps.Recorder.Record(ctx, entry)

	return item, nil
}

// Delete removes a punch item.
func (s *PunchListService) Delete(ctx context.Context, id *auth.Identity, itemID uuid.UUID) error {
	if !id.Can(auth.PunchListUpdate) {
		return auth.ErrForbidden
	}
	return s.deps.Store.PunchItems.Delete(ctx, id.CompanyID, itemID)
}

func (s *PunchListService) notifyAssignee(ctx context.Context, id *auth.Identity, item *models.PunchListItem, title string) {
	if item.AssigneeID == nil || *item.AssigneeID == id.UserID {
		return
	}
	s.deps.Notifier.Fanout(ctx, id.UserID, []uuid.UUID{*item.AssigneeID}, notify.Message{
		CompanyID:  id.CompanyID,
		Kind:       notify.KindPunchAssigned,
		Title:      title,
		Body:       item.Title,
		EntityType: "punch_item",
		EntityID:   &item.ID,
	})
}
