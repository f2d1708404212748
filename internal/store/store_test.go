package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/models"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestProjectGetScopedToCompany(t *testing.T) {
	st, mock := newStore(t)
	companyID := uuid.New()
	projectID := uuid.New()

	// The row exists under another tenant, so the scoped query is empty.
	mock.ExpectQuery(`SELECT (.+) FROM projects WHERE id = \$1 AND company_id = \$2`).
		WithArgs(projectID, companyID).
		WillReturnError(sql.ErrNoRows)

	_, err := st.Projects.Get(context.Background(), companyID, projectID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentCreateBumpsVersion(t *testing.T) {
	st, mock := newStore(t)
	doc := &models.Document{
		CompanyID:   uuid.New(),
		ProjectID:   uuid.New(),
		Title:       "Structural drawings",
		FileKey:     "company/x/y",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		UploadedBy:  uuid.New(),
	}

	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))

	require.NoError(t, st.Documents.Create(context.Background(), doc))
	assert.Equal(t, 3, doc.Version)
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayAppCountByStatus(t *testing.T) {
	st, mock := newStore(t)
	companyID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payment_applications`).
		WithArgs(companyID, models.PayAppApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := st.PayApps.CountByStatus(context.Background(), companyID, models.PayAppApproved)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestActivityMarkUndoneRequiresRow(t *testing.T) {
	st, mock := newStore(t)
	companyID := uuid.New()
	entryID := uuid.New()

	mock.ExpectExec(`UPDATE activity_log SET undone = TRUE`).
		WithArgs(entryID, companyID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Activity.MarkUndone(context.Background(), companyID, entryID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConvertDBError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrUniqueViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrForeignKeyViolation},
		{"check", &pgconn.PgError{Code: "23514"}, ErrCheckViolation},
		{"not null", &pgconn.PgError{Code: "23502"}, ErrNotNullViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertDBError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestPhaseSetStatusStampsUpdatedAt(t *testing.T) {
	st, mock := newStore(t)
	phase := &models.Phase{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Status:    models.PhaseInProgress,
	}

	before := time.Now()
	mock.ExpectExec(`UPDATE phases SET status = \$1`).
		WithArgs(phase.Status, nil, nil, sqlmock.AnyArg(), phase.ID, phase.CompanyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.Phases.SetStatus(context.Background(), phase))
	assert.False(t, phase.UpdatedAt.Before(before))
}
