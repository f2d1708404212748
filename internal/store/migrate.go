package store

import (
	"context"
	"fmt"
)

// Migration is a single schema step. Versions are ordinal and applied in
// order inside individual transactions.
type Migration struct {
	Version int64
	Name    string
	Up      string
}

// Migrate applies all pending migrations and records them in
// schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	applied := make(map[int64]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range Migrations {
		if applied[m.Version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.Version, m.Name,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Migrations is the ordered schema history.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_tenancy",
		Up: `
CREATE TABLE companies (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	plan VARCHAR(50) NOT NULL DEFAULT 'standard',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE users (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (company_id, email)
);
CREATE INDEX idx_users_company ON users(company_id);
`,
	},
	{
		Version: 2,
		Name:    "create_projects_phases",
		Up: `
CREATE TABLE projects (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	name VARCHAR(255) NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	client_name VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'PLANNING',
	start_date DATE,
	target_end DATE,
	budget_cents BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_projects_company ON projects(company_id);

CREATE TABLE phases (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name VARCHAR(255) NOT NULL,
	position INT NOT NULL DEFAULT 0,
	starts_on DATE,
	ends_on DATE,
	status VARCHAR(20) NOT NULL DEFAULT 'NOT_STARTED',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_phases_project ON phases(project_id);

CREATE TABLE phase_assignments (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	phase_id UUID NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role VARCHAR(20) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (phase_id, user_id)
);
CREATE UNIQUE INDEX idx_phase_single_owner ON phase_assignments(phase_id)
	WHERE role = 'OWNER';
`,
	},
	{
		Version: 3,
		Name:    "create_site_artifacts",
		Up: `
CREATE TABLE documents (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title VARCHAR(255) NOT NULL,
	file_key TEXT NOT NULL,
	content_type VARCHAR(100) NOT NULL DEFAULT '',
	size_bytes BIGINT NOT NULL DEFAULT 0,
	tags TEXT[] NOT NULL DEFAULT '{}',
	uploaded_by UUID NOT NULL REFERENCES users(id),
	version INT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_documents_project ON documents(project_id);

CREATE TABLE photos (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	phase_id UUID REFERENCES phases(id) ON DELETE SET NULL,
	file_key TEXT NOT NULL,
	caption TEXT NOT NULL DEFAULT '',
	taken_at TIMESTAMPTZ,
	tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_photos_project ON photos(project_id);

CREATE TABLE photo_annotations (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	photo_id UUID NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	author_id UUID NOT NULL REFERENCES users(id),
	x DOUBLE PRECISION NOT NULL,
	y DOUBLE PRECISION NOT NULL,
	note TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (x >= 0 AND x <= 1 AND y >= 0 AND y <= 1)
);

CREATE TABLE checklist_items (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	phase_id UUID NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
	body TEXT NOT NULL,
	done BOOLEAN NOT NULL DEFAULT FALSE,
	done_by UUID REFERENCES users(id),
	done_at TIMESTAMPTZ,
	position INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_checklist_phase ON checklist_items(phase_id);

CREATE TABLE voice_notes (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	author_id UUID NOT NULL REFERENCES users(id),
	file_key TEXT NOT NULL,
	duration_seconds INT NOT NULL DEFAULT 0,
	transcript TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: 4,
		Name:    "create_closeout_billing",
		Up: `
CREATE TABLE punch_list_items (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
	assignee_id UUID REFERENCES users(id),
	due_on DATE,
	closed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_punch_project ON punch_list_items(project_id);

CREATE TABLE lien_waivers (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	contractor_name VARCHAR(255) NOT NULL,
	amount_cents BIGINT NOT NULL DEFAULT 0,
	waiver_type VARCHAR(30) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
	document_id UUID REFERENCES documents(id) ON DELETE SET NULL,
	sent_at TIMESTAMPTZ,
	signed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE payment_applications (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	period_start DATE NOT NULL,
	period_end DATE NOT NULL,
	amount_requested_cents BIGINT NOT NULL DEFAULT 0,
	amount_approved_cents BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
	submitted_at TIMESTAMPTZ,
	decided_at TIMESTAMPTZ,
	decided_by UUID REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE subcontractor_bids (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	company_name VARCHAR(255) NOT NULL,
	trade VARCHAR(100) NOT NULL,
	amount_cents BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'RECEIVED',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: 5,
		Name:    "create_audit_notify",
		Up: `
CREATE TABLE activity_log (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID REFERENCES projects(id) ON DELETE CASCADE,
	actor_id UUID NOT NULL,
	action VARCHAR(100) NOT NULL,
	entity_type VARCHAR(50) NOT NULL,
	entity_id UUID NOT NULL,
	old_values JSONB,
	new_values JSONB,
	undone BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_activity_project ON activity_log(project_id, created_at DESC);

CREATE TABLE notifications (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind VARCHAR(50) NOT NULL,
	title VARCHAR(255) NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	entity_type VARCHAR(50) NOT NULL DEFAULT '',
	entity_id UUID,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_notifications_user ON notifications(user_id, created_at DESC);

CREATE TABLE notification_prefs (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind VARCHAR(50) NOT NULL,
	email BOOLEAN NOT NULL DEFAULT TRUE,
	in_app BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, kind)
);
`,
	},
	{
		Version: 6,
		Name:    "create_integrations",
		Up: `
CREATE TABLE api_keys (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	name VARCHAR(255) NOT NULL,
	prefix VARCHAR(20) NOT NULL UNIQUE,
	hash VARCHAR(255) NOT NULL,
	created_by UUID NOT NULL REFERENCES users(id),
	last_used_at TIMESTAMPTZ,
	revoked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE report_schedules (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	cadence VARCHAR(10) NOT NULL,
	hour_utc INT NOT NULL DEFAULT 6,
	recipients TEXT[] NOT NULL DEFAULT '{}',
	last_run_at TIMESTAMPTZ,
	next_run_at TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (hour_utc >= 0 AND hour_utc <= 23)
);

CREATE TABLE quickbooks_connections (
	id UUID PRIMARY KEY,
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	realm_id VARCHAR(50) NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	access_expires_at TIMESTAMPTZ NOT NULL,
	refresh_expires_at TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX idx_qb_one_active ON quickbooks_connections(company_id)
	WHERE active;
`,
	},
	{
		Version: 7,
		Name:    "create_jobs",
		Up: `
CREATE TABLE jobs (
	id UUID PRIMARY KEY,
	queue VARCHAR(100) NOT NULL,
	type VARCHAR(100) NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	priority INT NOT NULL DEFAULT 50,
	attempts INT NOT NULL DEFAULT 0,
	max_attempts INT NOT NULL DEFAULT 3,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	run_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	locked_by VARCHAR(100),
	locked_at TIMESTAMPTZ
);
CREATE INDEX idx_jobs_dequeue ON jobs(queue, status, run_at, priority DESC);
`,
	},
}
