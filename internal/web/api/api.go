// Package api exposes the HTTP surface: authentication, the REST
// resources and the websocket notification stream.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/web/middleware"
	"github.com/beamline/beamline/internal/web/ratelimit"
)

// API owns the HTTP handlers and their dependencies.
type API struct {
	services   *service.Services
	store      *store.Store
	tokens     *auth.TokenService
	sessions   auth.SessionStore
	sessionTTL time.Duration
	hub        *notify.Hub
	logger     *zap.Logger
}

// Config bundles what the router needs beyond the services.
type Config struct {
	Services   *service.Services
	Store      *store.Store
	Tokens     *auth.TokenService
	Sessions   auth.SessionStore
	SessionTTL time.Duration
	Hub        *notify.Hub
	Limiter    ratelimit.RateLimiter
	Logger     *zap.Logger
}

// New builds the API.
func New(cfg Config) *API {
	return &API{
		services:   cfg.Services,
		store:      cfg.Store,
		tokens:     cfg.Tokens,
		sessions:   cfg.Sessions,
		sessionTTL: cfg.SessionTTL,
		hub:        cfg.Hub,
		logger:     cfg.Logger,
	}
}

// Handler wraps the route table in the service-wide middleware chain.
// Request ID tagging runs outermost so recovery and logging see it.
func (a *API) Handler(cfg Config) http.Handler {
	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(a.logger),
		middleware.Logging(a.logger, "/healthz"),
	)
	if cfg.Limiter != nil {
		chain.Use(middleware.RateLimit(cfg.Limiter, a.logger))
	}
	return chain.Apply(a.Router(cfg))
}

// Router assembles the full route table.
func (a *API) Router(cfg Config) chi.Router {
	authn := middleware.NewAuthenticator(a.tokens, a.sessions, a.store.APIKeys, a.logger)

	r := chi.NewRouter()

	r.Get("/healthz", a.handleHealth)
	r.Post("/api/v1/login", a.handleLogin)
	r.Post("/api/v1/logout", a.handleLogout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Require())

		r.Get("/me", a.handleMe)
		r.Get("/ws", a.handleWebsocket)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.handleListUsers)
			r.With(authn.RequirePermission(auth.UsersManage)).Post("/", a.handleCreateUser)
			r.With(authn.RequirePermission(auth.UsersManage)).Put("/{userID}", a.handleUpdateUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.handleListProjects)
			r.Post("/", a.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", a.handleGetProject)
				r.Put("/", a.handleUpdateProject)
				r.Delete("/", a.handleDeleteProject)
				r.Get("/summary", a.handleProjectSummary)
				r.Get("/schedule", a.handleProjectSchedule)
				r.Get("/activity", a.handleProjectActivity)

				r.Get("/phases", a.handleListPhases)
				r.Post("/phases", a.handleCreatePhase)

				r.Get("/documents", a.handleListDocuments)
				r.Post("/documents", a.handleUploadDocument)
				r.Get("/photos", a.handleListPhotos)
				r.Post("/photos", a.handleUploadPhoto)
				r.Get("/voice-notes", a.handleListVoiceNotes)
				r.Post("/voice-notes", a.handleUploadVoiceNote)

				r.Get("/punch-list", a.handleListPunchItems)
				r.Post("/punch-list", a.handleCreatePunchItem)
				r.Get("/waivers", a.handleListWaivers)
				r.Post("/waivers", a.handleCreateWaiver)
				r.Get("/pay-apps", a.handleListPayApps)
				r.Post("/pay-apps", a.handleCreatePayApp)
				r.Get("/bids", a.handleListBids)
				r.Post("/bids", a.handleCreateBid)

				r.Post("/reports", a.handleGenerateReport)
				r.Get("/report-schedules", a.handleListSchedules)
				r.Post("/report-schedules", a.handleCreateSchedule)
			})
		})

		r.Post("/activity/{entryID}/undo", a.handleUndo)

		r.Route("/phases/{phaseID}", func(r chi.Router) {
			r.Get("/", a.handleGetPhase)
			r.Put("/", a.handleUpdatePhase)
			r.Delete("/", a.handleDeletePhase)
			r.Post("/transition", a.handleTransitionPhase)
			r.Get("/assignments", a.handleListAssignments)
			r.Post("/assignments", a.handleAssign)
			r.Get("/checklist", a.handleChecklist)
			r.Post("/checklist", a.handleAddChecklistItem)
		})
		r.Delete("/assignments/{assignmentID}", a.handleUnassign)
		r.Post("/checklist/{itemID}/toggle", a.handleToggleChecklistItem)
		r.Delete("/checklist/{itemID}", a.handleDeleteChecklistItem)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/", a.handleGetDocument)
			r.Put("/", a.handleUpdateDocument)
			r.Delete("/", a.handleDeleteDocument)
			r.Get("/download", a.handleDocumentDownload)
		})

		r.Route("/photos/{photoID}", func(r chi.Router) {
			r.Get("/", a.handleGetPhoto)
			r.Put("/", a.handleUpdatePhoto)
			r.Delete("/", a.handleDeletePhoto)
			r.Get("/download", a.handlePhotoDownload)
			r.Get("/annotations", a.handleListAnnotations)
			r.Post("/annotations", a.handleAnnotate)
		})
		r.Delete("/annotations/{annotationID}", a.handleDeleteAnnotation)

		r.Route("/voice-notes/{noteID}", func(r chi.Router) {
			r.Get("/", a.handleGetVoiceNote)
			r.Delete("/", a.handleDeleteVoiceNote)
			r.Get("/download", a.handleVoiceNoteDownload)
		})

		r.Route("/punch-list/{itemID}", func(r chi.Router) {
			r.Get("/", a.handleGetPunchItem)
			r.Put("/", a.handleUpdatePunchItem)
			r.Delete("/", a.handleDeletePunchItem)
			r.Post("/close", a.handleClosePunchItem)
		})

		r.Route("/waivers/{waiverID}", func(r chi.Router) {
			r.Get("/", a.handleGetWaiver)
			r.Put("/", a.handleUpdateWaiver)
			r.Delete("/", a.handleDeleteWaiver)
			r.Post("/status", a.handleWaiverStatus)
		})

		r.Route("/pay-apps/{appID}", func(r chi.Router) {
			r.Get("/", a.handleGetPayApp)
			r.Put("/", a.handleUpdatePayApp)
			r.Delete("/", a.handleDeletePayApp)
			r.Post("/submit", a.handleSubmitPayApp)
			r.Post("/approve", a.handleApprovePayApp)
			r.Post("/reject", a.handleRejectPayApp)
			r.Post("/pay", a.handlePayPayApp)
		})

		r.Route("/bids/{bidID}", func(r chi.Router) {
			r.Get("/", a.handleGetBid)
			r.Put("/", a.handleUpdateBid)
			r.Delete("/", a.handleDeleteBid)
			r.Post("/status", a.handleBidStatus)
		})

		r.Route("/report-schedules/{scheduleID}", func(r chi.Router) {
			r.Put("/", a.handleUpdateSchedule)
			r.Delete("/", a.handleDeleteSchedule)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", a.handleListNotifications)
			r.Get("/unread-count", a.handleUnreadCount)
			r.Post("/{notificationID}/read", a.handleMarkRead)
			r.Post("/read-all", a.handleMarkAllRead)
			r.Get("/prefs", a.handleListPrefs)
			r.Put("/prefs", a.handleUpsertPref)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Use(authn.RequirePermission(auth.APIKeysManage))
			r.Get("/", a.handleListAPIKeys)
			r.Post("/", a.handleCreateAPIKey)
			r.Delete("/{keyID}", a.handleRevokeAPIKey)
		})

		r.Route("/quickbooks", func(r chi.Router) {
			r.Get("/connect", a.handleQuickBooksConnect)
			r.Get("/callback", a.handleQuickBooksCallback)
			r.Get("/status", a.handleQuickBooksStatus)
			r.Post("/sync", a.handleQuickBooksSync)
			r.Delete("/", a.handleQuickBooksDisconnect)
		})
	})

	return r
}
