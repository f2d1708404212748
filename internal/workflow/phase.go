// Package workflow implements the phase status machine: five statuses,
// forward-only transitions with BLOCKED as the single lateral exception,
// role gates on starting and approving work, and timestamp side effects.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
)

var (
	// ErrInvalidTransition is returned for a move the machine does not allow.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrTransitionForbidden is returned when the caller lacks the gate
	// permission for an otherwise valid move.
	ErrTransitionForbidden = errors.New("transition not permitted for role")
)

// transitions lists the allowed moves. DONE is terminal.
var transitions = map[models.PhaseStatus][]models.PhaseStatus{
	models.PhaseNotStarted: {models.PhaseInProgress},
	models.PhaseInProgress: {models.PhaseBlocked, models.PhaseReview},
	models.PhaseBlocked:    {models.PhaseInProgress},
	models.PhaseReview:     {models.PhaseDone},
	models.PhaseDone:       {},
}

// CanTransition reports whether the move from one status to another is
// allowed, ignoring role gates.
func CanTransition(from, to models.PhaseStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// gate returns the permission required to enter a status, if any.
func gate(to models.PhaseStatus) (auth.Permission, bool) {
	switch to {
	case models.PhaseInProgress:
		return auth.PhasesTransition, true
	case models.PhaseDone:
		return auth.PhasesApprove, true
	}
	return "", false
}

// Transition applies a status change to the phase in memory: it validates
// the move, checks the caller's gate permission, and stamps started_at and
// completed_at. The caller persists the result.
func Transition(phase *models.Phase, to models.PhaseStatus, id *auth.Identity) error {
	if !CanTransition(phase.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, phase.Status, to)
	}

	if perm, gated := gate(to); gated && !id.Can(perm) {
		return fmt.Errorf("%w: %s requires %s", ErrTransitionForbidden, to, perm)
	}

	now := time.Now()
	switch to {
	case models.PhaseInProgress:
		// Stamp only the first entry; re-entering from BLOCKED keeps the
		// original start.
		if phase.StartedAt == nil {
			phase.StartedAt = &now
		}
	case models.PhaseDone:
		phase.CompletedAt = &now
	}

	phase.Status = to
	return nil
}
