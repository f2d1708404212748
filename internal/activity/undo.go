package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

var (
	// ErrAlreadyUndone is returned when an entry was undone before.
	ErrAlreadyUndone = errors.New("entry already undone")

	// ErrNotUndoable is returned for actions with no undo handler.
	ErrNotUndoable = errors.New("action cannot be undone")
)

// Undoer reverses supported audit entries by copying their recorded old
// values back onto the row. One best-effort pass, no undo stack.
type Undoer struct {
	store    *store.Store
	recorder *Recorder
	logger   *zap.Logger
}

// NewUndoer creates an undoer.
func NewUndoer(s *store.Store, recorder *Recorder, logger *zap.Logger) *Undoer {
	return &Undoer{store: s, recorder: recorder, logger: logger}
}

// Undo reverses the entry with the given ID. The switch on the action key
// dispatches to a per-action field copy; unsupported actions error.
func (u *Undoer) Undo(ctx context.Context, id *auth.Identity, logID uuid.UUID) error {
	entry, err := u.store.Activity.Get(ctx, id.CompanyID, logID)
	if err != nil {
		return err
	}
	if entry.Undone {
		return ErrAlreadyUndone
	}

	switch entry.Action {
	case ActionPhaseStatusChanged:
		err = u.undoPhaseStatus(ctx, id.CompanyID, entry)
	case ActionProjectUpdated:
		err = u.undoProjectUpdate(ctx, id.CompanyID, entry)
	case ActionPunchItemUpdated:
		err = u.undoPunchItemUpdate(ctx, id.CompanyID, entry)
	case ActionChecklistToggled:
		err = u.undoChecklistToggle(ctx, id.CompanyID, entry)
	default:
		return fmt.Errorf("%w: %s", ErrNotUndoable, entry.Action)
	}
	if err != nil {
		return fmt.Errorf("undo %s: %w", entry.Action, err)
	}

	if err := u.store.Activity.MarkUndone(ctx, id.CompanyID, entry.ID); err != nil {
		return err
	}

	comp := Entry(id.CompanyID, entry.ProjectID, id.UserID, ActionUndone, entry.EntityType, entry.EntityID)
	comp.OldValues = entry.NewValues
	comp.NewValues = entry.OldValues
	u.recorder.Record(ctx, comp)

	return nil
}

func (u *Undoer) undoPhaseStatus(ctx context.Context, companyID uuid.UUID, entry *models.ActivityEntry) error {
	phase, err := u.store.Phases.Get(ctx, companyID, entry.EntityID)
	if err != nil {
		return err
	}

	phase.Status = models.PhaseStatus(stringValue(entry.OldValues, "status"))
	if _, ok := entry.OldValues["started_at"]; ok {
		phase.StartedAt = timeValue(entry.OldValues, "started_at")
	}
	if _, ok := entry.OldValues["completed_at"]; ok {
		phase.CompletedAt = timeValue(entry.OldValues, "completed_at")
	}

	return u.store.Phases.SetStatus(ctx, phase)
}

func (u *Undoer) undoProjectUpdate(ctx context.Context, companyID uuid.UUID, entry *models.ActivityEntry) error {
	project, err := u.store.Projects.Get(ctx, companyID, entry.EntityID)
	if err != nil {
		return err
	}

	if v, ok := entry.OldValues["name"]; ok {
		project.Name, _ = v.(string)
	}
	if v, ok := entry.OldValues["address"]; ok {
		project.Address, _ = v.(string)
	}
	if v, ok := entry.OldValues["client_name"]; ok {
		project.ClientName, _ = v.(string)
	}
	if v, ok := entry.OldValues["status"]; ok {
		s, _ := v.(string)
		project.Status = models.ProjectStatus(s)
	}
	if _, ok := entry.OldValues["start_date"]; ok {
		project.StartDate = timeValue(entry.OldValues, "start_date")
	}
	if _, ok := entry.OldValues["target_end"]; ok {
		project.TargetEnd = timeValue(entry.OldValues, "target_end")
	}
	if v, ok := entry.OldValues["budget_cents"]; ok {
		project.BudgetCents = int64Value(v)
	}

	return u.store.Projects.Update(ctx, project)
}

func (u *Undoer) undoPunchItemUpdate(ctx context.Context, companyID uuid.UUID, entry *models.ActivityEntry) error {
	item, err := u.store.PunchItems.Get(ctx, companyID, entry.EntityID)
	if err != nil {
		return err
	}

	if v, ok := entry.OldValues["title"]; ok {
		item.Title, _ = v.(string)
	}
	if v, ok := entry.OldValues["description"]; ok {
		item.Description, _ = v.(string)
	}
	if v, ok := entry.OldValues["status"]; ok {
		s, _ := v.(string)
		item.Status = models.PunchStatus(s)
	}
	if _, ok := entry.OldValues["assignee_id"]; ok {
		item.AssigneeID = uuidValue(entry.OldValues, "assignee_id")
	}
	if _, ok := entry.OldValues["due_on"]; ok {
		item.DueOn = timeValue(entry.OldValues, "due_on")
	}
	if _, ok := entry.OldValues["closed_at"]; ok {
		item.ClosedAt = timeValue(entry.OldValues, "closed_at")
	}

	return u.store.PunchItems.Update(ctx, item)
}

func (u *Undoer) undoChecklistToggle(ctx context.Context, companyID uuid.UUID, entry *models.ActivityEntry) error {
	item, err := u.store.Checklists.Get(ctx, companyID, entry.EntityID)
	if err != nil {
		return err
	}

	done, _ := entry.OldValues["done"].(bool)
	item.Done = done
	if _, ok := entry.OldValues["done_by"]; ok {
		item.DoneBy = uuidValue(entry.OldValues, "done_by")
	}
	if _, ok := entry.OldValues["done_at"]; ok {
		item.DoneAt = timeValue(entry.OldValues, "done_at")
	}

	return u.store.Checklists.SetDone(ctx, item)
}

// JSON round-trips old_values through map[string]any, so typed fields come
// back as strings and float64s.

func stringValue(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}

func timeValue(values map[string]any, key string) *time.Time {
	s, ok := values[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func uuidValue(values map[string]any, key string) *uuid.UUID {
	s, ok := values[key].(string)
	if !ok || s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func int64Value(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
