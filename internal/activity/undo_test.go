package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

func newUndoer(t *testing.T) (*Undoer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	return NewUndoer(st, NewRecorder(st.Activity, zap.NewNop()), zap.NewNop()), mock
}

var activityCols = []string{
	"id", "company_id", "project_id", "actor_id", "action", "entity_type",
	"entity_id", "old_values", "new_values", "undone", "created_at",
}

func entryRow(id uuid.UUID, identity *auth.Identity, action string, entityID uuid.UUID, oldJSON, newJSON string, undone bool) *sqlmock.Rows {
	projectID := uuid.New()
	return sqlmock.NewRows(activityCols).AddRow(
		id, identity.CompanyID, projectID, identity.UserID, action, "phase",
		entityID, []byte(oldJSON), []byte(newJSON), undone, time.Now(),
	)
}

func TestUndoPhaseStatus(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()
	phaseID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM activity_log WHERE id = \$1 AND company_id = \$2`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(entryRow(entryID, id, ActionPhaseStatusChanged, phaseID,
			`{"status":"IN_PROGRESS","started_at":"2026-08-01T09:00:00Z","completed_at":null}`,
			`{"status":"DONE"}`, false))

	mock.ExpectQuery(`SELECT (.+) FROM phases WHERE id = \$1 AND company_id = \$2`).
		WithArgs(phaseID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "project_id", "name", "position", "starts_on", "ends_on",
			"status", "started_at", "completed_at", "created_at", "updated_at",
		}).AddRow(
			phaseID, id.CompanyID, uuid.New(), "Framing", 2, nil, nil,
			"DONE", time.Now(), time.Now(), time.Now(), time.Now(),
		))

	mock.ExpectExec(`UPDATE phases SET status = \$1`).
		WithArgs("IN_PROGRESS", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), phaseID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE activity_log SET undone = TRUE`).
		WithArgs(entryID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, undoer.Undo(context.Background(), id, entryID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoPhaseStatusWithoutTimestampsLeavesThem(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()
	phaseID := uuid.New()
	startedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// Entries recorded before timestamps were captured carry only the
	// status; undo must not null out what it has no record of.
	mock.ExpectQuery(`SELECT (.+) FROM activity_log WHERE id = \$1 AND company_id = \$2`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(entryRow(entryID, id, ActionPhaseStatusChanged, phaseID,
			`{"status":"IN_PROGRESS"}`, `{"status":"REVIEW"}`, false))

	mock.ExpectQuery(`SELECT (.+) FROM phases WHERE id = \$1 AND company_id = \$2`).
		WithArgs(phaseID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "project_id", "name", "position", "starts_on", "ends_on",
			"status", "started_at", "completed_at", "created_at", "updated_at",
		}).AddRow(
			phaseID, id.CompanyID, uuid.New(), "Framing", 2, nil, nil,
			"REVIEW", startedAt, nil, time.Now(), time.Now(),
		))

	mock.ExpectExec(`UPDATE phases SET status = \$1`).
		WithArgs("IN_PROGRESS", startedAt, nil, sqlmock.AnyArg(), phaseID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE activity_log SET undone = TRUE`).
		WithArgs(entryID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, undoer.Undo(context.Background(), id, entryID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoAlreadyUndone(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM activity_log`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(entryRow(entryID, id, ActionPhaseStatusChanged, uuid.New(),
			`{"status":"IN_PROGRESS"}`, `{"status":"DONE"}`, true))

	err := undoer.Undo(context.Background(), id, entryID)
	assert.ErrorIs(t, err, ErrAlreadyUndone)
}

func TestUndoUnsupportedAction(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM activity_log`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(entryRow(entryID, id, ActionDocumentUploaded, uuid.New(), `{}`, `{}`, false))

	err := undoer.Undo(context.Background(), id, entryID)
	assert.ErrorIs(t, err, ErrNotUndoable)
}

func TestUndoEntryNotFound(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM activity_log`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(activityCols))

	err := undoer.Undo(context.Background(), id, entryID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUndoChecklistToggle(t *testing.T) {
	undoer, mock := newUndoer(t)
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
	entryID := uuid.New()
	itemID := uuid.New()
	phaseID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM activity_log`).
		WithArgs(entryID, id.CompanyID).
		WillReturnRows(entryRow(entryID, id, ActionChecklistToggled, itemID,
			`{"done":false,"done_by":"","done_at":""}`, `{"done":true}`, false))

	mock.ExpectQuery(`SELECT (.+) FROM checklist_items WHERE id = \$1 AND company_id = \$2`).
		WithArgs(itemID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "phase_id", "body", "done", "done_by", "done_at",
			"position", "created_at", "updated_at",
		}).AddRow(itemID, id.CompanyID, phaseID, "Inspect wiring", true, id.UserID, time.Now(),
			0, time.Now(), time.Now()))

	mock.ExpectExec(`UPDATE checklist_items SET done = \$1`).
		WithArgs(false, nil, nil, sqlmock.AnyArg(), itemID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE activity_log SET undone = TRUE`).
		WithArgs(entryID, id.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, undoer.Undo(context.Background(), id, entryID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
