package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/ai"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/blob"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/store"
)

type stubAI struct {
	completion string
	transcript string
}

func (s stubAI) Complete(context.Context, string) (string, error) {
	return s.completion, nil
}

func (s stubAI) Transcribe(context.Context, []byte, string) (string, error) {
	return s.transcript, nil
}

func newTestServices(t *testing.T) (*Services, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.NewFilesystemStore(t.TempDir(), "http://localhost:8080/files", []byte("test-secret"))
	require.NoError(t, err)

	st := store.New(db)
	logger := zap.NewNop()
	deps := Deps{
		Store:     st,
		Cache:     cache.NewMemoryCache(),
		Blobs:     blobs,
		Queue:     jobs.NewQueue(db),
		Recorder:  activity.NewRecorder(st.Activity, logger),
		Notifier:  notify.NewNotifier(st.Notifications, nil, logger),
		Generator: ai.NewGenerator(stubAI{completion: `{"summary":"ok"}`}),
		Logger:    logger,
	}
	return New(deps), mock
}

func managerIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleManager}
}

func staffIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleStaff}
}

func viewerIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleViewer}
}

// expectNoRecipients satisfies the fanout user lookup with an empty company.
func expectNoRecipients(mock sqlmock.Sqlmock, companyID uuid.UUID) {
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE company_id = \$1`).
		WithArgs(companyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "email", "password_hash", "name", "role", "active",
			"created_at", "updated_at",
		}))
}

func expectActivityInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func ptr[T any](v T) *T { return &v }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
