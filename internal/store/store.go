// Package store implements Postgres persistence for all Beamline
// resources. Every query is scoped by company ID; a row belonging to
// another tenant is indistinguishable from a missing row.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps the database handle and exposes per-resource repositories.
type Store struct {
	db *sql.DB

	Companies     *CompanyRepo
	Users         *UserRepo
	Projects      *ProjectRepo
	Phases        *PhaseRepo
	Assignments   *AssignmentRepo
	Documents     *DocumentRepo
	Photos        *PhotoRepo
	Annotations   *AnnotationRepo
	Checklists    *ChecklistRepo
	PunchItems    *PunchListRepo
	Waivers       *WaiverRepo
	PayApps       *PayAppRepo
	Bids          *BidRepo
	VoiceNotes    *VoiceNoteRepo
	Activity      *ActivityRepo
	Notifications *NotificationRepo
	APIKeys       *APIKeyRepo
	Schedules     *ScheduleRepo
	QuickBooks    *QuickBooksRepo
}

// Options holds connection pool settings.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres via the pgx stdlib driver and configures the
// connection pool.
func Open(ctx context.Context, url string, opts Options) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db), nil
}

// New builds a Store around an existing handle. Used by tests with sqlmock.
func New(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Companies:     &CompanyRepo{db: db},
		Users:         &UserRepo{db: db},
		Projects:      &ProjectRepo{db: db},
		Phases:        &PhaseRepo{db: db},
		Assignments:   &AssignmentRepo{db: db},
		Documents:     &DocumentRepo{db: db},
		Photos:        &PhotoRepo{db: db},
		Annotations:   &AnnotationRepo{db: db},
		Checklists:    &ChecklistRepo{db: db},
		PunchItems:    &PunchListRepo{db: db},
		Waivers:       &WaiverRepo{db: db},
		PayApps:       &PayAppRepo{db: db},
		Bids:          &BidRepo{db: db},
		VoiceNotes:    &VoiceNoteRepo{db: db},
		Activity:      &ActivityRepo{db: db},
		Notifications: &NotificationRepo{db: db},
		APIKeys:       &APIKeyRepo{db: db},
		Schedules:     &ScheduleRepo{db: db},
		QuickBooks:    &QuickBooksRepo{db: db},
	}
}

// DB exposes the raw handle for components that manage their own SQL,
// such as the job queue.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
