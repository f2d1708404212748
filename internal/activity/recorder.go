// Package activity implements the append-only audit log and its
// best-effort undo.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

// Action keys recorded by services. Undo supports the subset handled in
// undo.go.
const (
	ActionProjectCreated      = "project.created"
	ActionProjectUpdated      = "project.updated"
	ActionProjectDeleted      = "project.deleted"
	ActionPhaseCreated        = "phase.created"
	ActionPhaseStatusChanged  = "phase.status_changed"
	ActionPunchItemUpdated    = "punch_item.updated"
	ActionChecklistToggled    = "checklist.toggled"
	ActionWaiverStatusChanged = "waiver.status_changed"
	ActionPayAppDecided       = "payapp.decided"
	ActionDocumentUploaded    = "document.uploaded"
	ActionUndone              = "entry.undone"
)

// Recorder appends audit entries. Failures are logged, never surfaced:
// audit writes must not fail the action they describe.
type Recorder struct {
	repo   *store.ActivityRepo
	logger *zap.Logger
}

// NewRecorder creates a recorder.
func NewRecorder(repo *store.ActivityRepo, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends an entry, fire and forget.
func (r *Recorder) Record(ctx context.Context, e *models.ActivityEntry) {
	if err := r.repo.Insert(ctx, e); err != nil {
		r.logger.Warn("activity record failed",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.Stringer("entity_id", e.EntityID),
			zap.Error(err),
		)
	}
}

// TimeField renders an optional timestamp for an old/new values map. Nil
// becomes JSON null, so a present-but-null key means "the field was unset"
// while an absent key means "not recorded, leave alone".
func TimeField(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// UUIDField renders an optional UUID reference the same way.
func UUIDField(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// Entry is a convenience constructor for the common case.
func Entry(companyID uuid.UUID, projectID *uuid.UUID, actorID uuid.UUID, action, entityType string, entityID uuid.UUID) *models.ActivityEntry {
	return &models.ActivityEntry{
		CompanyID:  companyID,
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
}
