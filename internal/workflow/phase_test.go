package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
)

func manager() *auth.Identity {
	return &auth.Identity{Role: models.RoleManager}
}

func viewer() *auth.Identity {
	return &auth.Identity{Role: models.RoleViewer}
}

func staff() *auth.Identity {
	return &auth.Identity{Role: models.RoleStaff}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.PhaseStatus
		want     bool
	}{
		{models.PhaseNotStarted, models.PhaseInProgress, true},
		{models.PhaseNotStarted, models.PhaseReview, false},
		{models.PhaseNotStarted, models.PhaseDone, false},
		{models.PhaseInProgress, models.PhaseBlocked, true},
		{models.PhaseInProgress, models.PhaseReview, true},
		{models.PhaseInProgress, models.PhaseDone, false},
		{models.PhaseBlocked, models.PhaseInProgress, true},
		{models.PhaseBlocked, models.PhaseReview, false},
		{models.PhaseReview, models.PhaseDone, true},
		{models.PhaseReview, models.PhaseNotStarted, false},
		{models.PhaseDone, models.PhaseInProgress, false},
		{models.PhaseDone, models.PhaseReview, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionInvalidMove(t *testing.T) {
	phase := &models.Phase{Status: models.PhaseNotStarted}

	err := Transition(phase, models.PhaseDone, manager())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.PhaseNotStarted, phase.Status)
}

func TestTransitionStartGate(t *testing.T) {
	phase := &models.Phase{Status: models.PhaseNotStarted}

	err := Transition(phase, models.PhaseInProgress, viewer())
	assert.ErrorIs(t, err, ErrTransitionForbidden)
	assert.Equal(t, models.PhaseNotStarted, phase.Status)
	assert.Nil(t, phase.StartedAt)

	err = Transition(phase, models.PhaseInProgress, staff())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseInProgress, phase.Status)
	assert.NotNil(t, phase.StartedAt)
}

func TestTransitionApproveGate(t *testing.T) {
	phase := &models.Phase{Status: models.PhaseReview}

	// Staff can work a phase but not approve it.
	err := Transition(phase, models.PhaseDone, staff())
	assert.ErrorIs(t, err, ErrTransitionForbidden)

	err = Transition(phase, models.PhaseDone, manager())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDone, phase.Status)
	assert.NotNil(t, phase.CompletedAt)
}

func TestTransitionKeepsOriginalStart(t *testing.T) {
	started := time.Now().Add(-48 * time.Hour)
	phase := &models.Phase{
		Status:    models.PhaseBlocked,
		StartedAt: &started,
	}

	err := Transition(phase, models.PhaseInProgress, manager())
	require.NoError(t, err)
	assert.Equal(t, started, *phase.StartedAt, "re-entering IN_PROGRESS must not restamp started_at")
}

func TestTransitionBlockUnblockCycle(t *testing.T) {
	phase := &models.Phase{Status: models.PhaseNotStarted}
	id := manager()

	require.NoError(t, Transition(phase, models.PhaseInProgress, id))
	require.NoError(t, Transition(phase, models.PhaseBlocked, id))
	require.NoError(t, Transition(phase, models.PhaseInProgress, id))
	require.NoError(t, Transition(phase, models.PhaseReview, id))
	require.NoError(t, Transition(phase, models.PhaseDone, id))

	assert.NotNil(t, phase.StartedAt)
	assert.NotNil(t, phase.CompletedAt)
}
