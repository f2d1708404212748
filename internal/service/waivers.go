package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/workflow"
)

// WaiverService manages lien waivers through the draft/sent/signed cycle.
type WaiverService struct {
	deps Deps
}

// WaiverInput carries the client-settable lien waiver fields.
type WaiverInput struct {
	ContractorName string            `json:"contractor_name"`
	AmountCents    int64             `json:"amount_cents"`
	WaiverType     models.WaiverType `json:"waiver_type"`
	DocumentID     *uuid.UUID        `json:"document_id"`
}

// Create records a new waiver in DRAFT.
func (s *WaiverService) Create(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in WaiverInput) (*models.LienWaiver, error) {
	if !id.Can(auth.WaiversManage) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if in.DocumentID != nil {
		if _, err := s.deps.Store.Documents.Get(ctx, id.CompanyID, *in.DocumentID); err != nil {
			return nil, err
		}
	}

	w := &models.LienWaiver{
		CompanyID:      id.CompanyID,
		ProjectID:      projectID,
		ContractorName: in.ContractorName,
		AmountCents:    in.AmountCents,
		WaiverType:     in.WaiverType,
		Status:         models.WaiverDraft,
		DocumentID:     in.DocumentID,
	}
	if err := s.deps.Store.Waivers.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns one waiver.
func (s *WaiverService) Get(ctx context.Context, id *auth.Identity, waiverID uuid.UUID) (*models.LienWaiver, error) {
	return s.deps.Store.Waivers.Get(ctx, id.CompanyID, waiverID)
}

// List returns a project's waivers.
func (s *WaiverService) List(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.LienWaiver, error) {
	return s.deps.Store.Waivers.ListByProject(ctx, id.CompanyID, projectID)
}

// Update edits a waiver's fields while it is still a draft.
func (s *WaiverService) Update(ctx context.Context, id *auth.Identity, waiverID uuid.UUID, in WaiverInput) (*models.LienWaiver, error) {
	if !id.Can(auth.WaiversManage) {
		return nil, auth.ErrForbidden
	}

	w, err := s.deps.Store.Waivers.Get(ctx, id.CompanyID, waiverID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WaiverDraft {
		return nil, workflow.ErrInvalidTransition
	}

	w.ContractorName = in.ContractorName
	w.AmountCents = in.AmountCents
	w.WaiverType = in.WaiverType
	w.DocumentID = in.DocumentID

	if err := s.deps.Store.Waivers.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// SetStatus advances a waiver: DRAFT becomes SENT, SENT becomes SIGNED or
// REJECTED. SentAt and SignedAt are stamped on first entry.
func (s *WaiverService) SetStatus(ctx context.Context, id *auth.Identity, waiverID uuid.UUID, to models.WaiverStatus) (*models.LienWaiver, error) {
	if !id.Can(auth.WaiversManage) {
		return nil, auth.ErrForbidden
	}

	w, err := s.deps.Store.Waivers.Get(ctx, id.CompanyID, waiverID)
	if err != nil {
		return nil, err
	}

	if !waiverTransitionAllowed(w.Status, to) {
		return nil, workflow.ErrInvalidTransition
	}

	old := map[string]any{"status": string(w.Status)}
	now := time.Now()
	w.Status = to
	switch to {
	case models.WaiverSent:
		w.SentAt = &now
	case models.WaiverSigned:
		w.SignedAt = &now
	}

	if err := s.deps.Store.Waivers.Update(ctx, w); err != nil {
		return nil, err
	}

	entry := activity.Entry(id.CompanyID, &w.ProjectID, id.UserID, activity.ActionWaiverStatusChanged, "lien_waiver", w.ID)
	entry.OldValues = old
	entry.NewValues = map[string]any{"status": string(to)}
	s.deps.Recorder.Record(ctx, entry)

	if to == models.WaiverSigned {
		s.notifySigned(ctx, id, w)
	}
	return w, nil
}

// Delete removes a draft waiver.
func (s *WaiverService) Delete(ctx context.Context, id *auth.Identity, waiverID uuid.UUID) error {
	if !id.Can(auth.WaiversManage) {
		return auth.ErrForbidden
	}

	w, err := s.deps.Store.Waivers.Get(ctx, id.CompanyID, waiverID)
	if err != nil {
		return err
	}
	if w.Status != models.WaiverDraft {
		return workflow.ErrInvalidTransition
	}
	return s.deps.Store.Waivers.Delete(ctx, id.CompanyID, waiverID)
}

func waiverTransitionAllowed(from, to models.WaiverStatus) bool {
	switch from {
	case models.WaiverDraft:
		return to == models.WaiverSent
	case models.WaiverSent:
		return to == models.WaiverSigned || to == models.WaiverRejected
	default:
		return false
	}
}

func (s *WaiverService) notifySigned(ctx context.Context, id *auth.Identity, w *models.LienWaiver) {
	users, err := s.deps.Store.Users.List(ctx, id.CompanyID)
	if err != nil {
		return
	}
	targets := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleAdmin || u.Role == models.RoleManager {
			targets = append(targets, u.ID)
		}
	}
	s.deps.Notifier.Fanout(ctx, id.UserID, targets, notify.Message{
		CompanyID:  id.CompanyID,
		Kind:       notify.KindWaiverSigned,
		Title:      fmt.Sprintf("Lien waiver signed by %s", w.ContractorName),
		Body:       fmt.Sprintf("%s waiver for %d cents", w.WaiverType, w.AmountCents),
		EntityType: "lien_waiver",
		EntityID:   &w.ID,
	})
}
