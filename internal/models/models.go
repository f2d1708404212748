package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level a user holds within their company.
type Role string

const (
	// RoleAdmin has every permission, including destructive ones.
	RoleAdmin Role = "ADMIN"
	// RoleManager runs projects: approvals, transitions, scheduling.
	RoleManager Role = "MANAGER"
	// RoleStaff works on site artifacts but cannot approve.
	RoleStaff Role = "STAFF"
	// RoleSubcontractor sees assigned work and updates punch items.
	RoleSubcontractor Role = "SUBCONTRACTOR"
	// RoleViewer is read-only.
	RoleViewer Role = "VIEWER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleSubcontractor, RoleViewer:
		return true
	}
	return false
}

// Company is a tenant. Every other row is scoped to exactly one company.
type Company struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Plan      string    `db:"plan" json:"plan"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// User is a member of a company.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CompanyID    uuid.UUID `db:"company_id" json:"company_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         Role      `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

// Project is the top-level unit of work: one job site, one client.
type Project struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	CompanyID   uuid.UUID     `db:"company_id" json:"company_id"`
	Name        string        `db:"name" json:"name"`
	Address     string        `db:"address" json:"address"`
	ClientName  string        `db:"client_name" json:"client_name"`
	Status      ProjectStatus `db:"status" json:"status"`
	StartDate   *time.Time    `db:"start_date" json:"start_date,omitempty"`
	TargetEnd   *time.Time    `db:"target_end" json:"target_end,omitempty"`
	BudgetCents int64         `db:"budget_cents" json:"budget_cents"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// PhaseStatus is a phase's position in the site workflow.
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "NOT_STARTED"
	PhaseInProgress PhaseStatus = "IN_PROGRESS"
	PhaseBlocked    PhaseStatus = "BLOCKED"
	PhaseReview     PhaseStatus = "REVIEW"
	PhaseDone       PhaseStatus = "DONE"
)

// Phase is a scheduling unit within a project, one row on the Gantt chart.
type Phase struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	CompanyID   uuid.UUID   `db:"company_id" json:"company_id"`
	ProjectID   uuid.UUID   `db:"project_id" json:"project_id"`
	Name        string      `db:"name" json:"name"`
	Position    int         `db:"position" json:"position"`
	StartsOn    *time.Time  `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn      *time.Time  `db:"ends_on" json:"ends_on,omitempty"`
	Status      PhaseStatus `db:"status" json:"status"`
	StartedAt   *time.Time  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// AssignmentRole distinguishes a phase's single owner from contributors.
type AssignmentRole string

const (
	AssignmentOwner       AssignmentRole = "OWNER"
	AssignmentContributor AssignmentRole = "CONTRIBUTOR"
)

// PhaseAssignment links a user to a phase. A phase has at most one OWNER.
type PhaseAssignment struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	CompanyID uuid.UUID      `db:"company_id" json:"company_id"`
	PhaseID   uuid.UUID      `db:"phase_id" json:"phase_id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Role      AssignmentRole `db:"role" json:"role"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Document is an uploaded file attached to a project (plans, permits,
// contracts). Re-uploading under the same title bumps Version.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CompanyID   uuid.UUID `db:"company_id" json:"company_id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`
	Title       string    `db:"title" json:"title"`
	FileKey     string    `db:"file_key" json:"file_key"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Tags        []string  `db:"tags" json:"tags"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	Version     int       `db:"version" json:"version"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Photo is a site photo, optionally pinned to a phase.
type Photo struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	CompanyID uuid.UUID  `db:"company_id" json:"company_id"`
	ProjectID uuid.UUID  `db:"project_id" json:"project_id"`
	PhaseID   *uuid.UUID `db:"phase_id" json:"phase_id,omitempty"`
	FileKey   string     `db:"file_key" json:"file_key"`
	Caption   string     `db:"caption" json:"caption"`
	TakenAt   *time.Time `db:"taken_at" json:"taken_at,omitempty"`
	Tags      []string   `db:"tags" json:"tags"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PhotoAnnotation is a positioned note on a photo. X and Y are fractions
// of the image dimensions in [0,1].
type PhotoAnnotation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CompanyID uuid.UUID `db:"company_id" json:"company_id"`
	PhotoID   uuid.UUID `db:"photo_id" json:"photo_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	X         float64   `db:"x" json:"x"`
	Y         float64   `db:"y" json:"y"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChecklistItem is a single line on a phase checklist.
type ChecklistItem struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	CompanyID uuid.UUID  `db:"company_id" json:"company_id"`
	PhaseID   uuid.UUID  `db:"phase_id" json:"phase_id"`
	Body      string     `db:"body" json:"body"`
	Done      bool       `db:"done" json:"done"`
	DoneBy    *uuid.UUID `db:"done_by" json:"done_by,omitempty"`
	DoneAt    *time.Time `db:"done_at" json:"done_at,omitempty"`
	Position  int        `db:"position" json:"position"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PunchStatus tracks a deficiency item toward closeout.
type PunchStatus string

const (
	PunchOpen           PunchStatus = "OPEN"
	PunchInProgress     PunchStatus = "IN_PROGRESS"
	PunchReadyForReview PunchStatus = "READY_FOR_REVIEW"
	PunchClosed         PunchStatus = "CLOSED"
)

// PunchListItem is a deficiency that must be resolved before closeout.
type PunchListItem struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	CompanyID   uuid.UUID   `db:"company_id" json:"company_id"`
	ProjectID   uuid.UUID   `db:"project_id" json:"project_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Status      PunchStatus `db:"status" json:"status"`
	AssigneeID  *uuid.UUID  `db:"assignee_id" json:"assignee_id,omitempty"`
	DueOn       *time.Time  `db:"due_on" json:"due_on,omitempty"`
	ClosedAt    *time.Time  `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// WaiverType is the legal form of a lien waiver.
type WaiverType string

const (
	WaiverConditionalProgress   WaiverType = "CONDITIONAL_PROGRESS"
	WaiverUnconditionalProgress WaiverType = "UNCONDITIONAL_PROGRESS"
	WaiverConditionalFinal      WaiverType = "CONDITIONAL_FINAL"
	WaiverUnconditionalFinal    WaiverType = "UNCONDITIONAL_FINAL"
)

// WaiverStatus is the approval state of a lien waiver.
type WaiverStatus string

const (
	WaiverDraft    WaiverStatus = "DRAFT"
	WaiverSent     WaiverStatus = "SENT"
	WaiverSigned   WaiverStatus = "SIGNED"
	WaiverRejected WaiverStatus = "REJECTED"
)

// LienWaiver tracks a contractor's waiver document through signature.
type LienWaiver struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	CompanyID      uuid.UUID    `db:"company_id" json:"company_id"`
	ProjectID      uuid.UUID    `db:"project_id" json:"project_id"`
	ContractorName string       `db:"contractor_name" json:"contractor_name"`
	AmountCents    int64        `db:"amount_cents" json:"amount_cents"`
	WaiverType     WaiverType   `db:"waiver_type" json:"waiver_type"`
	Status         WaiverStatus `db:"status" json:"status"`
	DocumentID     *uuid.UUID   `db:"document_id" json:"document_id,omitempty"`
	SentAt         *time.Time   `db:"sent_at" json:"sent_at,omitempty"`
	SignedAt       *time.Time   `db:"signed_at" json:"signed_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// PayAppStatus is the approval state of a payment application.
type PayAppStatus string

const (
	PayAppDraft     PayAppStatus = "DRAFT"
	PayAppSubmitted PayAppStatus = "SUBMITTED"
	PayAppApproved  PayAppStatus = "APPROVED"
	PayAppRejected  PayAppStatus = "REJECTED"
	PayAppPaid      PayAppStatus = "PAID"
)

// PaymentApplication is a periodic billing request against a project.
type PaymentApplication struct {
	ID                   uuid.UUID    `db:"id" json:"id"`
	CompanyID            uuid.UUID    `db:"company_id" json:"company_id"`
	ProjectID            uuid.UUID    `db:"project_id" json:"project_id"`
	PeriodStart          time.Time    `db:"period_start" json:"period_start"`
	PeriodEnd            time.Time    `db:"period_end" json:"period_end"`
	AmountRequestedCents int64        `db:"amount_requested_cents" json:"amount_requested_cents"`
	AmountApprovedCents  int64        `db:"amount_approved_cents" json:"amount_approved_cents"`
	Status               PayAppStatus `db:"status" json:"status"`
	SubmittedAt          *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	DecidedAt            *time.Time   `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy            *uuid.UUID   `db:"decided_by" json:"decided_by,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

// BidStatus is where a subcontractor bid stands.
type BidStatus string

const (
	BidReceived    BidStatus = "RECEIVED"
	BidShortlisted BidStatus = "SHORTLISTED"
	BidAccepted    BidStatus = "ACCEPTED"
	BidDeclined    BidStatus = "DECLINED"
)

// SubcontractorBid is a quote received for a trade on a project.
type SubcontractorBid struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CompanyID   uuid.UUID `db:"company_id" json:"company_id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	Trade       string    `db:"trade" json:"trade"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Status      BidStatus `db:"status" json:"status"`
	Notes       string    `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// VoiceNote is a recorded field note. Transcript is filled in by the
// transcription job after upload.
type VoiceNote struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CompanyID       uuid.UUID `db:"company_id" json:"company_id"`
	ProjectID       uuid.UUID `db:"project_id" json:"project_id"`
	AuthorID        uuid.UUID `db:"author_id" json:"author_id"`
	FileKey         string    `db:"file_key" json:"file_key"`
	DurationSeconds int       `db:"duration_seconds" json:"duration_seconds"`
	Transcript      string    `db:"transcript" json:"transcript"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ActivityEntry is one row of the append-only audit log. OldValues and
// NewValues hold the changed fields as JSON for undo.
type ActivityEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	CompanyID  uuid.UUID       `db:"company_id" json:"company_id"`
	ProjectID  *uuid.UUID      `db:"project_id" json:"project_id,omitempty"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID       `db:"entity_id" json:"entity_id"`
	OldValues  map[string]any  `db:"old_values" json:"old_values,omitempty"`
	NewValues  map[string]any  `db:"new_values" json:"new_values,omitempty"`
	Undone     bool            `db:"undone" json:"undone"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Notification is an in-app message for one user.
type Notification struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CompanyID  uuid.UUID  `db:"company_id" json:"company_id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Kind       string     `db:"kind" json:"kind"`
	Title      string     `db:"title" json:"title"`
	Body       string     `db:"body" json:"body"`
	EntityType string     `db:"entity_type" json:"entity_type"`
	EntityID   *uuid.UUID `db:"entity_id" json:"entity_id,omitempty"`
	ReadAt     *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// NotificationPref is a per-user, per-kind delivery toggle. Unique on
// (user_id, kind).
type NotificationPref struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CompanyID uuid.UUID `db:"company_id" json:"company_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	Email     bool      `db:"email" json:"email"`
	InApp     bool      `db:"in_app" json:"in_app"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// APIKey is a service credential. Only the bcrypt hash of the secret is
// stored; Prefix identifies the key in logs and the UI.
type APIKey struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CompanyID  uuid.UUID  `db:"company_id" json:"company_id"`
	Name       string     `db:"name" json:"name"`
	Prefix     string     `db:"prefix" json:"prefix"`
	Hash       string     `db:"hash" json:"-"`
	CreatedBy  uuid.UUID  `db:"created_by" json:"created_by"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ReportCadence is how often a scheduled report runs.
type ReportCadence string

const (
	CadenceDaily  ReportCadence = "DAILY"
	CadenceWeekly ReportCadence = "WEEKLY"
)

// ReportSchedule drives recurring AI progress reports for a project.
type ReportSchedule struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	CompanyID  uuid.UUID     `db:"company_id" json:"company_id"`
	ProjectID  uuid.UUID     `db:"project_id" json:"project_id"`
	Cadence    ReportCadence `db:"cadence" json:"cadence"`
	HourUTC    int           `db:"hour_utc" json:"hour_utc"`
	Recipients []string      `db:"recipients" json:"recipients"`
	LastRunAt  *time.Time    `db:"last_run_at" json:"last_run_at,omitempty"`
	NextRunAt  time.Time     `db:"next_run_at" json:"next_run_at"`
	Active     bool          `db:"active" json:"active"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// QuickBooksConnection holds OAuth tokens for one Intuit realm. At most
// one connection per company is active.
type QuickBooksConnection struct {
	ID               uuid.UUID `db:"id" json:"id"`
	CompanyID        uuid.UUID `db:"company_id" json:"company_id"`
	RealmID          string    `db:"realm_id" json:"realm_id"`
	AccessToken      string    `db:"access_token" json:"-"`
	RefreshToken     string    `db:"refresh_token" json:"-"`
	AccessExpiresAt  time.Time `db:"access_expires_at" json:"access_expires_at"`
	RefreshExpiresAt time.Time `db:"refresh_expires_at" json:"refresh_expires_at"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
