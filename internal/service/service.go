// Package service holds the business rules between the HTTP handlers and
// the store: permission gates, status machines, audit recording, cache
// invalidation, and notification fanout.
package service

import (
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/ai"
	"github.com/beamline/beamline/internal/blob"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/quickbooks"
	"github.com/beamline/beamline/internal/store"
)

// Services bundles every domain service for injection into the router.
type Services struct {
	Projects   *ProjectService
	Phases     *PhaseService
	Artifacts  *ArtifactService
	PunchList  *PunchListService
	Waivers    *WaiverService
	PayApps    *PayAppService
	Bids       *BidService
	Reports    *ReportService
	QuickBooks *QuickBooksService
	Undo       *activity.Undoer
}

// Deps are the shared dependencies services are built from.
type Deps struct {
	Store     *store.Store
	Cache     cache.Cache
	Blobs     blob.Store
	Queue     *jobs.Queue
	Recorder  *activity.Recorder
	Notifier  *notify.Notifier
	Generator *ai.Generator
	QBClient  *quickbooks.Client
	QBSyncer  *quickbooks.Syncer
	Logger    *zap.Logger
}

// New wires all services from shared dependencies.
func New(d Deps) *Services {
	return &Services{
		Projects:   &ProjectService{deps: d},
		Phases:     &PhaseService{deps: d},
		Artifacts:  &ArtifactService{deps: d},
		PunchList:  &PunchListService{deps: d},
		Waivers:    &WaiverService{deps: d},
		PayApps:    &PayAppService{deps: d},
		Bids:       &BidService{deps: d},
		Reports:    &ReportService{deps: d},
		QuickBooks: &QuickBooksService{deps: d},
		Undo:       activity.NewUndoer(d.Store, d.Recorder, d.Logger),
	}
}
