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

var bidCols = []string{
	"id", "company_id", "project_id", "company_name", "trade", "amount_cents",
	"status", "notes", "created_at", "updated_at",
}

func TestBidCreateValidation(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	projectID := uuid.New()

	projectRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "company_id", "name", "address", "client_name", "status",
			"start_date", "target_end", "budget_cents", "created_at", "updated_at",
		}).AddRow(projectID, id.CompanyID, "Riverside Duplex", "", "", "ACTIVE",
			nil, nil, 0, time.Now(), time.Now())
	}

	mock.ExpectQuery(`SELECT (.+) FROM projects`).WillReturnRows(projectRow())
	_, err := services.Bids.Create(context.Background(), id, projectID, BidInput{
		Trade: "electrical", AmountCents: 500_000,
	})
	var vErr *response.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "company_name")

	mock.ExpectQuery(`SELECT (.+) FROM projects`).WillReturnRows(projectRow())
	_, err = services.Bids.Create(context.Background(), id, projectID, BidInput{
		CompanyName: "Volt Electric", Trade: "electrical", AmountCents: 0,
	})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "amount_cents")
}

func TestBidShortlist(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	bidID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM subcontractor_bids WHERE id = \$1`).
		WithArgs(bidID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(bidCols).AddRow(
			bidID, id.CompanyID, uuid.New(), "Volt Electric", "electrical", 500_000,
			models.BidReceived, "", now, now,
		))
	mock.ExpectExec(`UPDATE subcontractor_bids`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := services.Bids.SetStatus(context.Background(), id, bidID, models.BidShortlisted)
	require.NoError(t, err)
	assert.Equal(t, models.BidShortlisted, b.Status)
}

func TestBidAcceptDeclinesCompetingTrade(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	projectID := uuid.New()
	acceptedID := uuid.New()
	rivalID := uuid.New()
	plumberID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM subcontractor_bids WHERE id = \$1`).
		WithArgs(acceptedID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(bidCols).AddRow(
			acceptedID, id.CompanyID, projectID, "Volt Electric", "electrical", 500_000,
			models.BidShortlisted, "", now, now,
		))
	mock.ExpectExec(`UPDATE subcontractor_bids`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Competing electrical bid is declined; the plumbing bid is untouched.
	mock.ExpectQuery(`SELECT (.+) FROM subcontractor_bids`).
		WithArgs(projectID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(bidCols).
			AddRow(acceptedID, id.CompanyID, projectID, "Volt Electric", "electrical", 500_000,
				models.BidAccepted, "", now, now).
			AddRow(rivalID, id.CompanyID, projectID, "Amp Bros", "electrical", 480_000,
				models.BidReceived, "", now, now).
			AddRow(plumberID, id.CompanyID, projectID, "Apex Plumbing", "plumbing", 300_000,
				models.BidReceived, "", now, now))

	mock.ExpectExec(`UPDATE subcontractor_bids`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := services.Bids.SetStatus(context.Background(), id, acceptedID, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.BidAccepted, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBidCannotAcceptFromReceived(t *testing.T) {
	services, mock := newTestServices(t)
	id := managerIdentity()
	bidID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM subcontractor_bids WHERE id = \$1`).
		WithArgs(bidID, id.CompanyID).
		WillReturnRows(sqlmock.NewRows(bidCols).AddRow(
			bidID, id.CompanyID, uuid.New(), "Volt Electric", "electrical", 500_000,
			models.BidReceived, "", now, now,
		))

	_, err := services.Bids.SetStatus(context.Background(), id, bidID, models.BidAccepted)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestBidSetStatusRequiresPermission(t *testing.T) {
	services, _ := newTestServices(t)

	_, err := services.Bids.SetStatus(context.Background(), staffIdentity(), uuid.New(), models.BidShortlisted)
	assert.ErrorIs(t, err, auth.ErrForbidden)
}
