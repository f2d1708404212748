package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/workflow"
)

// BidService manages subcontractor bids per trade on a project.
type BidService struct {
	deps Deps
}

// BidInput carries the client-settable bid fields.
type BidInput struct {
	CompanyName string `json:"company_name"`
	Trade       string `json:"trade"`
	AmountCents int64  `json:"amount_cents"`
	Notes       string `json:"notes"`
}

// Create records a new bid as RECEIVED.
func (s *BidService) Create(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in BidInput) (*models.SubcontractorBid, error) {
	if !id.Can(auth.BidsManage) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if in.CompanyName == "" {
		return nil, NewValidationErrorf("company_name", "is required")
	}
	if in.AmountCents <= 0 {
		return nil, NewValidationErrorf("amount_cents", "must be positive")
	}

	b := &models.SubcontractorBid{
		CompanyID:   id.CompanyID,
		ProjectID:   projectID,
		CompanyName: in.CompanyName,
		Trade:       in.Trade,
		AmountCents: in.AmountCents,
		Status:      models.BidReceived,
		Notes:       in.Notes,
	}
	if err := s.deps.Store.Bids.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns one bid.
func (s *BidService) Get(ctx context.Context, id *auth.Identity, bidID uuid.UUID) (*models.SubcontractorBid, error) {
	return s.deps.Store.Bids.Get(ctx, id.CompanyID, bidID)
}

// List returns a project's bids.
func (s *BidService) List(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.SubcontractorBid, error) {
	return s.deps.Store.Bids.ListByProject(ctx, id.CompanyID, projectID)
}

// Update edits a bid's fields.
func (s *BidService) Update(ctx context.Context, id *auth.Identity, bidID uuid.UUID, in BidInput) (*models.SubcontractorBid, error) {
	if !id.Can(auth.BidsManage) {
		return nil, auth.ErrForbidden
	}

	b, err := s.deps.Store.Bids.Get(ctx, id.CompanyID, bidID)
	if err != nil {
		return nil, err
	}

	b.CompanyName = in.CompanyName
	b.Trade = in.Trade
	b.AmountCents = in.AmountCents
	b.Notes = in.Notes

	if err := s.deps.Store.Bids.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetStatus moves a bid along the evaluation funnel. Accepting a bid
// declines every other bid for the same trade.
func (s *BidService) SetStatus(ctx context.Context, id *auth.Identity, bidID uuid.UUID, to models.BidStatus) (*models.SubcontractorBid, error) {
	if !id.Can(auth.BidsManage) {
		return nil, auth.ErrForbidden
	}

	b, err := s.deps.Store.Bids.Get(ctx, id.CompanyID, bidID)
	if err != nil {
		return nil, err
	}

	if !bidTransitionAllowed(b.Status, to) {
		return nil, workflow.ErrInvalidTransition
	}

	b.Status = to
	if err := s.deps.Store.Bids.Update(ctx, b); err != nil {
		return nil, err
	}

	if to == models.BidAccepted {
		if err := s.declineCompeting(ctx, id, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Delete removes a bid.
func (s *BidService) Delete(ctx context.Context, id *auth.Identity, bidID uuid.UUID) error {
	if !id.Can(auth.BidsManage) {
		return auth.ErrForbidden
	}
	return s.deps.Store.Bids.Delete(ctx, id.CompanyID, bidID)
}

func (s *BidService) declineCompeting(ctx context.Context, id *auth.Identity, accepted *models.SubcontractorBid) error {
	bids, err := s.deps.Store.Bids.ListByProject(ctx, id.CompanyID, accepted.ProjectID)
	if err != nil {
		return err
	}
	for _, other := range bids {
		if other.ID == accepted.ID || other.Trade != accepted.Trade {
			continue
		}
		if other.Status == models.BidDeclined {
			continue
		}
		other.Status = models.BidDeclined
		if err := s.deps.Store.Bids.Update(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

func bidTransitionAllowed(from, to models.BidStatus) bool {
	switch from {
	case models.BidReceived:
		return to == models.BidShortlisted || to == models.BidDeclined
	case models.BidShortlisted:
		return to == models.BidAccepted || to == models.BidDeclined
	default:
		return false
	}
}
