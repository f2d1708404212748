package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/web/response"
	"github.com/beamline/beamline/internal/workflow"
)

var payAppCols = []string{
	"id", "company_id", "project_id", "period_start", "period_end",
	"amount_requested_cents", "amount_approved_cents", "status",
	"submitted_at", "decided_at", "decided_by", "created_at", "updated_at",
}

func payAppRow(id uuid.UUID, companyID uuid.UUID, status models.PayAppStatus, requestedCents int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(payAppCols).AddRow(
		id, companyID, uuid.New(), now.AddDate(0, -1, 0), now,
		requestedCents, 0, status,
		nil, nil, nil, now, now,
	)
}

func TestPayAppCreateRejectsInvertedPeriod(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	projectID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM projects`).
		WithArgs(projectID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "name", "address", "client_name", "status",
			"start_date", "target_end", "budget_cents", "created_at", "updated_at",
		}).AddRow(projectID, id.CompanyID, "Riverside Duplex", "", "", "ACTIVE",
			nil, nil, 0, time.Now(), time.Now()))

	start := date(t, "2026-03-01")
	_, err := services.PayApps.Create(context.Background(), id, projectID, PayAppInput{
		PeriodStart:          start,
		PeriodEnd:            start.AddDate(0, 0, -5),
		AmountRequestedCents: 100_000,
	})

	var vErr *response.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "period_end")
}

func TestPayAppCreateRequiresSubmitPermission(t *testing.T) {
	services, _ := newTestServices(t)

	_, err := services.PayApps.Create(context.Background(), viewerIdentity(), uuid.New(), PayAppInput{})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPayAppSubmitStampsTimestamp(t *testing.T) {
	services, mock := newTestServices(t)
	id := staffIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppDraft, 250_000))
	mock.ExpectExec(`UPDATE payment_applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := services.PayApps.Submit(context.Background(), id, appID)
	require.NoError(t, err)
	assert.Equal(t, models.PayAppSubmitted, a.Status)
	require.NotNil(t, a.SubmittedAt)
}

func TestPayAppSubmitTwice(t *testing.T) {
	services, mock := newTestServices(t)
	id := staffIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppSubmitted, 250_000))

	_, err := services.PayApps.Submit(context.Background(), id, appID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestPayAppApprove(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppSubmitted, 250_000))
	mock.ExpectExec(`UPDATE payment_applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectActivityInsert(mock)
	expectNoRecipients(mock, id.CompanyID)

	a, err := services.PayApps.Approve(context.Background(), id, appID, 200_000)
	require.NoError(t, err)

	assert.Equal(t, models.PayAppApproved, a.Status)
	assert.Equal(t, int64(200_000), a.AmountApprovedCents)
	require.NotNil(t, a.DecidedBy)
	assert.Equal(t, id.UserID, *a.DecidedBy)
	assert.NotNil(t, a.DecidedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayAppApproveAboveRequested(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppSubmitted, 250_000))

	_, err := services.PayApps.Approve(context.Background(), id, appID, 300_000)

	var vErr *response.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "amount_approved_cents")
}

func TestPayAppApproveRequiresApprovePermission(t *testing.T) {
	services, _ := newTestServices(t)

	// Staff may submit but never decide.
	_, err := services.PayApps.Approve(context.Background(), staffIdentity(), uuid.New(), 100)
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPayAppMarkPaidOnlyFromApproved(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppSubmitted, 250_000))

	_, err := services.PayApps.MarkPaid(context.Background(), id, appID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestPayAppDeleteOnlyDraft(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	appID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM payment_applications`).
		WithArgs(appID, id.CompanyID).
		WillReturnRows(payAppRow(appID, id.CompanyID, models.PayAppPaid, 250_000))

	err := services.PayApps.Delete(context.Background(), id, appID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}
