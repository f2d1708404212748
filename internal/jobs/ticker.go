package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

// ScheduleTicker polls report_schedules and enqueues report.generate jobs
// for the ones that are due, advancing next_run_at as it goes.
type ScheduleTicker struct {
	queue     *Queue
	schedules *store.ScheduleRepo
	interval  time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewScheduleTicker creates a ticker with the given poll interval.
func NewScheduleTicker(queue *Queue, schedules *store.ScheduleRepo, interval time.Duration, logger *zap.Logger) *ScheduleTicker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ScheduleTicker{
		queue:     queue,
		schedules: schedules,
		interval:  interval,
		stopChan:  make(chan struct{}),
		logger:    logger,
	}
}

// Start begins polling in a background goroutine.
func (t *ScheduleTicker) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Tick(ctx, time.Now())
			}
		}
	}()
}

// Stop halts polling and waits for the loop to exit.
func (t *ScheduleTicker) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}

// Tick enqueues one report.generate job per due schedule. Exported so the
// tick can be driven directly in tests.
func (t *ScheduleTicker) Tick(ctx context.Context, now time.Time) {
	due, err := t.schedules.ListDue(ctx, now)
	if err != nil {
		t.logger.Warn("failed to list due schedules", zap.Error(err))
		return
	}

	for _, s := range due {
		job := New(TypeReportGenerate, map[string]any{
			"company_id":  s.CompanyID.String(),
			"project_id":  s.ProjectID.String(),
			"schedule_id": s.ID.String(),
		})
		if err := t.queue.Enqueue(ctx, job); err != nil {
			t.logger.Warn("failed to enqueue scheduled report",
				zap.Stringer("schedule", s.ID), zap.Error(err))
			continue
		}

		next := NextRun(s.Cadence, s.HourUTC, now)
		if err := t.schedules.AdvanceRun(ctx, s.ID, now, next); err != nil {
			t.logger.Warn("failed to advance schedule",
				zap.Stringer("schedule", s.ID), zap.Error(err))
		}
	}
}

// NextRun computes the next run after now: the coming day (or the same day
// plus seven for weekly) at the schedule's hour, UTC.
func NextRun(cadence models.ReportCadence, hourUTC int, now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)

	switch cadence {
	case models.CadenceWeekly:
		next = next.AddDate(0, 0, 7)
	default: // daily
		next = next.AddDate(0, 0, 1)
	}

	return next
}
