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

// PayAppService manages payment applications through submission and
// approval.
type PayAppService struct {
	deps Deps
}

// PayAppInput carries the client-settable payment application fields.
type PayAppInput struct {
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
	AmountRequestedCents int64     `json:"amount_requested_cents"`
}

// Create opens a new application in DRAFT.
func (s *PayAppService) Create(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in PayAppInput) (*models.PaymentApplication, error) {
	if !id.Can(auth.PayAppsSubmit) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, NewValidationErrorf("period_end", "must be after period_start")
	}

	a := &models.PaymentApplication{
		CompanyID:            id.CompanyID,
		ProjectID:            projectID,
		PeriodStart:          in.PeriodStart,
		PeriodEnd:            in.PeriodEnd,
		AmountRequestedCents: in.AmountRequestedCents,
		Status:               models.PayAppDraft,
	}
	if err := s.deps.Store.PayApps.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns one application.
func (s *PayAppService) Get(ctx context.Context, id *auth.Identity, appID uuid.UUID) (*models.PaymentApplication, error) {
	return s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
}

// List returns a project's applications.
func (s *PayAppService) List(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.PaymentApplication, error) {
	return s.deps.Store.PayApps.ListByProject(ctx, id.CompanyID, projectID)
}

// Update edits a draft application.
func (s *PayAppService) Update(ctx context.Context, id *auth.Identity, appID uuid.UUID, in PayAppInput) (*models.PaymentApplication, error) {
	if !id.Can(auth.PayAppsSubmit) {
		return nil, auth.ErrForbidden
	}

	a, err := s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.PayAppDraft {
		return nil, workflow.ErrInvalidTransition
	}

	a.PeriodStart = in.PeriodStart
	a.PeriodEnd = in.PeriodEnd
	a.AmountRequestedCents = in.AmountRequestedCents

	if err := s.deps.Store.PayApps.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit moves DRAFT to SUBMITTED and stamps SubmittedAt.
func (s *PayAppService) Submit(ctx context.Context, id *auth.Identity, appID uuid.UUID) (*models.PaymentApplication, error) {
	if !id.Can(auth.PayAppsSubmit) {
		return nil, auth.ErrForbidden
	}

	a, err := s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.PayAppDraft {
		return nil, workflow.ErrInvalidTransition
	}

	now := time.Now()
	a.Status = models.PayAppSubmitted
	a.SubmittedAt = &now

	if err := s.deps.Store.PayApps.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve moves SUBMITTED to APPROVED, records the approved amount, and
// stamps the decision.
func (s *PayAppService) Approve(ctx context.Context, id *auth.Identity, appID uuid.UUID, approvedCents int64) (*models.PaymentApplication, error) {
	return s.decide(ctx, id, appID, models.PayAppApproved, approvedCents)
}

// Reject moves SUBMITTED to REJECTED and stamps the decision.
func (s *PayAppService) Reject(ctx context.Context, id *auth.Identity, appID uuid.UUID) (*models.PaymentApplication, error) {
	return s.decide(ctx, id, appID, models.PayAppRejected, 0)
}

func (s *PayAppService) decide(ctx context.Context, id *auth.Identity, appID uuid.UUID, to models.PayAppStatus, approvedCents int64) (*models.PaymentApplication, error) {
	if !id.Can(auth.PayAppsApprove) {
		return nil, auth.ErrForbidden
	}

	a, err := s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.PayAppSubmitted {
		return nil, workflow.ErrInvalidTransition
	}
	if to == models.PayAppApproved {
		if approvedCents <= 0 || approvedCents > a.AmountRequestedCents {
			return nil, NewValidationErrorf("amount_approved_cents",
				"must be positive and at most the requested amount")
		}
		a.AmountApprovedCents = approvedCents
	}

	old := map[string]any{"status": string(a.Status)}
	now := time.Now()
	a.Status = to
	a.DecidedAt = &now
	a.DecidedBy = &id.UserID

	if err := s.deps.Store.PayApps.Update(ctx, a); err != nil {
		return nil, err
	}

	entry := activity.Entry(id.CompanyID, &a.ProjectID, id.UserID, activity.ActionPayAppDecided, "payment_application", a.ID)
	entry.OldValues = old
	entry.NewValues = map[string]any{
		"status":                string(to),
		"amount_approved_cents": a.AmountApprovedCents,
	}
	s.deps.Recorder.Record(ctx, entry)

	s.notifyDecision(ctx, id, a)
	return a, nil
}

// MarkPaid moves APPROVED to PAID.
func (s *PayAppService) MarkPaid(ctx context.Context, id *auth.Identity, appID uuid.UUID) (*models.PaymentApplication, error) {
	if !id.Can(auth.PayAppsApprove) {
		return nil, auth.ErrForbidden
	}

	a, err := s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.PayAppApproved {
		return nil, workflow.ErrInvalidTransition
	}

	a.Status = models.PayAppPaid
	if err := s.deps.Store.PayApps.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes a draft application.
func (s *PayAppService) Delete(ctx context.Context, id *auth.Identity, appID uuid.UUID) error {
	if !id.Can(auth.PayAppsSubmit) {
		return auth.ErrForbidden
	}

	a, err := s.deps.Store.PayApps.Get(ctx, id.CompanyID, appID)
	if err != nil {
		return err
	}
	if a.Status != models.PayAppDraft {
		return workflow.ErrInvalidTransition
	}
	return s.deps.Store.PayApps.Delete(ctx, id.CompanyID, appID)
}

func (s *PayAppService) notifyDecision(ctx context.Context, id *auth.Identity, a *models.PaymentApplication) {
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
		Kind:       notify.KindPayAppDecision,
		Title:      fmt.Sprintf("Payment application %s", a.Status),
		Body:       fmt.Sprintf("Requested %d cents, approved %d cents", a.AmountRequestedCents, a.AmountApprovedCents),
		EntityType: "payment_application",
		EntityID:   &a.ID,
	})
}
