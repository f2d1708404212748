package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/workflow"
)

var punchCols = []string{
	"id", "company_id", "project_id", "title", "description", "status",
	"assignee_id", "due_on", "closed_at", "created_at", "updated_at",
}

func punchRow(id uuid.UUID, companyID uuid.UUID, status models.PunchStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(punchCols).AddRow(
		id, companyID, uuid.New(), "Seal window gap", "", status,
		nil, nil, nil, now, now,
	)
}

func TestPunchCloseFromReadyForReview(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	itemID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM punch_list_items`).
		WithArgs(itemID, id.CompanyID).
		WillReturnRows(punchRow(itemID, id.CompanyID, models.PunchReadyForReview))
	mock.ExpectExec(`UPDATE punch_list_items`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectActivityInsert(mock)

	item, err := services.PunchList.Close(context.Background(), id, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.PunchClosed, item.Status)
	assert.NotNil(t, item.ClosedAt)
}

func TestPunchCloseFromOpen(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	itemID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM punch_list_items`).
		WithArgs(itemID, id.CompanyID).
		WillReturnRows(punchRow(itemID, id.CompanyID, models.PunchOpen))

	_, err := services.PunchList.Close(context.Background(), id, itemID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestPunchCloseRequiresClosePermission(t *testing.T) {
	services, _ := newTestServices(t)

	// Staff and subcontractors update items but cannot close them out.
	_, err := services.PunchList.Close(context.Background(), staffIdentity(), uuid.New())
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPunchUpdateRecordsAssignmentInAudit(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	itemID := uuid.New()
	projectID := uuid.New()
	assignee := uuid.New()
	dueOn := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM punch_list_items`).
		WithArgs(itemID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(punchCols).AddRow(
			itemID, id.CompanyID, projectID, "Seal window gap", "", models.PunchOpen,
			assignee, dueOn, nil, now, now,
		))
	mock.ExpectExec(`UPDATE punch_list_items`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var oldJSON []byte
	mock.ExpectExec(`INSERT INTO activity_log`).
		WithArgs(sqlmock.AnyArg(), id.CompanyID, projectID, id.UserID,
			activity.ActionPunchItemUpdated, "punch_item", itemID,
			captureArg{&oldJSON}, sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Clearing the assignee and due date must leave them recoverable from
	// the audit entry.
	item, err := services.PunchList.Update(context.Background(), id, itemID, PunchItemInput{
		Title: "Seal window gap",
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, item.AssigneeID)
	assert.Contains(t, string(oldJSON), assignee.String())
	assert.Contains(t, string(oldJSON), "due_on")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPunchUpdateCannotSetClosed(t *testing.T) {
	services, mock := newTestServices(t)
	id := staffIdentity()
	itemID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM punch_list_items`).
		WithArgs(itemID, id.CompanyID).
		WillReturnRows(punchRow(itemID, id.CompanyID, models.PunchInProgress))

	status := models.PunchClosed
	_, err := services.PunchList.Update(context.Background(), id, itemID, PunchItemInput{
		Title: "Seal window gap",
	}, &status)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}
