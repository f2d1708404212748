package notify

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/store"
)

func newNotifier(t *testing.T) (*Notifier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	return NewNotifier(st.Notifications, nil, zap.NewNop()), mock
}

var prefCols = []string{"id", "company_id", "user_id", "kind", "email", "in_app", "updated_at"}

func TestSendDefaultsToInApp(t *testing.T) {
	notifier, mock := newNotifier(t)
	msg := Message{
		CompanyID: uuid.New(),
		UserID:    uuid.New(),
		Kind:      KindPunchAssigned,
		Title:     "Punch item assigned",
	}

	// No stored pref row: the default delivers everywhere.
	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(msg.UserID, msg.CompanyID, msg.Kind).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, notifier.Send(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendHonorsMutedPref(t *testing.T) {
	notifier, mock := newNotifier(t)
	msg := Message{
		CompanyID: uuid.New(),
		UserID:    uuid.New(),
		Kind:      KindReportReady,
		Title:     "Weekly report ready",
	}

	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(msg.UserID, msg.CompanyID, msg.Kind).
		WillReturnRows(sqlmock.NewRows(prefCols).AddRow(
			uuid.New(), msg.CompanyID, msg.UserID, msg.Kind, false, false, time.Now(),
		))

	// Fully muted: no notification row is written.
	require.NoError(t, notifier.Send(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendEmailOnlyPref(t *testing.T) {
	notifier, mock := newNotifier(t)
	msg := Message{
		CompanyID: uuid.New(),
		UserID:    uuid.New(),
		Kind:      KindWaiverSigned,
		Title:     "Waiver signed",
	}

	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(msg.UserID, msg.CompanyID, msg.Kind).
		WillReturnRows(sqlmock.NewRows(prefCols).AddRow(
			uuid.New(), msg.CompanyID, msg.UserID, msg.Kind, true, false, time.Now(),
		))

	require.NoError(t, notifier.Send(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFanoutSkipsActor(t *testing.T) {
	notifier, mock := newNotifier(t)
	companyID := uuid.New()
	actorID := uuid.New()
	other := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(other, companyID, KindPhaseStatus).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notifier.Fanout(context.Background(), actorID, []uuid.UUID{actorID, other}, Message{
		CompanyID: companyID,
		Kind:      KindPhaseStatus,
		Title:     "Phase moved to review",
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFanoutToleratesFailures(t *testing.T) {
	notifier, mock := newNotifier(t)
	companyID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(first, companyID, KindPayAppDecision).
		WillReturnError(sql.ErrConnDone)

	mock.ExpectQuery(`SELECT (.+) FROM notification_prefs`).
		WithArgs(second, companyID, KindPayAppDecision).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notifier.Fanout(context.Background(), uuid.New(), []uuid.UUID{first, second}, Message{
		CompanyID: companyID,
		Kind:      KindPayAppDecision,
		Title:     "Pay app approved",
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
