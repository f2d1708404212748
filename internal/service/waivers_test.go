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
	"github.com/beamline/beamline/internal/workflow"
)

var waiverCols = []string{
	"id", "company_id", "project_id", "contractor_name", "amount_cents",
	"waiver_type", "status", "document_id", "sent_at", "signed_at",
	"created_at", "updated_at",
}

func waiverRow(id uuid.UUID, companyID uuid.UUID, status models.WaiverStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(waiverCols).AddRow(
		id, companyID, uuid.New(), "Apex Plumbing", 150_000,
		models.WaiverConditionalProgress, status, nil, nil, nil,
		now, now,
	)
}

func TestWaiverSendStampsSentAt(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	waiverID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM lien_waivers`).
		WithArgs(waiverID, id.CompanyID).
		WillReturnRows(waiverRow(waiverID, id.CompanyID, models.WaiverDraft))
	mock.ExpectExec(`UPDATE lien_waivers`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectActivityInsert(mock)

	w, err := services.Waivers.SetStatus(context.Background(), id, waiverID, models.WaiverSent)
	require.NoError(t, err)
	assert.Equal(t, models.WaiverSent, w.Status)
	assert.NotNil(t, w.SentAt)
	assert.Nil(t, w.SignedAt)
}

func TestWaiverSignNotifiesManagers(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	waiverID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM lien_waivers`).
		WithArgs(waiverID, id.CompanyID).
		WillReturnRows(waiverRow(waiverID, id.CompanyID, models.WaiverSent))
	mock.ExpectExec(`UPDATE lien_waivers`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectActivityInsert(mock)
	expectNoRecipients(mock, id.CompanyID)

	w, err := services.Waivers.SetStatus(context.Background(), id, waiverID, models.WaiverSigned)
	require.NoError(t, err)
	assert.Equal(t, models.WaiverSigned, w.Status)
	assert.NotNil(t, w.SignedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaiverCannotSkipSent(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	waiverID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM lien_waivers`).
		WithArgs(waiverID, id.CompanyID).
		WillReturnRows(waiverRow(waiverID, id.CompanyID, models.WaiverDraft))

	_, err := services.Waivers.SetStatus(context.Background(), id, waiverID, models.WaiverSigned)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestWaiverSignedIsTerminal(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	waiverID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM lien_waivers`).
		WithArgs(waiverID, id.CompanyID).
		WillReturnRows(waiverRow(waiverID, id.CompanyID, models.WaiverSigned))

	_, err := services.Waivers.SetStatus(context.Background(), id, waiverID, models.WaiverRejected)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestWaiverUpdateOnlyDraft(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	waiverID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM lien_waivers`).
		WithArgs(waiverID, id.CompanyID).
		WillReturnRows(waiverRow(waiverID, id.CompanyID, models.WaiverSent))

	_, err := services.Waivers.Update(context.Background(), id, waiverID, WaiverInput{
		ContractorName: "Apex Plumbing LLC",
		AmountCents:    150_000,
		WaiverType:     models.WaiverConditionalProgress,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestWaiverSetStatusRequiresPermission(t *testing.T) {
	services, _ := newTestServices(t)

	_, err := services.Waivers.SetStatus(context.Background(), viewerIdentity(), uuid.New(), models.WaiverSent)
	assert.ErrorIs(t, err, auth.ErrForbidden)
}
