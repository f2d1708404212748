package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// NotificationRepo persists in-app notifications and delivery prefs.
type NotificationRepo struct {
	db *sql.DB
}

const notificationColumns = `id, company_id, user_id, kind, title, body,
	entity_type, entity_id, read_at, created_at`

func scanNotification(scan func(dest ...any) error) (*models.Notification, error) {
	var n models.Notification
	err := scan(
		&n.ID, &n.CompanyID, &n.UserID, &n.Kind, &n.Title, &n.Body,
		&n.EntityType, &n.EntityID, &n.ReadAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &n, nil
}

// Insert writes one notification row.
func (r *NotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, company_id, user_id, kind, title, body,
			entity_type, entity_id, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.CompanyID, n.UserID, n.Kind, n.Title, n.Body,
		n.EntityType, n.EntityID, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", ConvertDBError(err))
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, companyID, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = $1 AND company_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		userID, companyID, limit,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (r *NotificationRepo) UnreadCount(ctx context.Context, companyID, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND company_id = $2 AND read_at IS NULL`,
		userID, companyID,
	).Scan(&n)
	if err != nil {
		return 0, ConvertDBError(err)
	}
	return n, nil
}

// MarkRead stamps read_at on one notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, companyID, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = $1
		WHERE id = $2 AND user_id = $3 AND company_id = $4 AND read_at IS NULL`,
		time.Now(), id, userID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// MarkAllRead stamps read_at on every unread notification for a user.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, companyID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = $1
		WHERE user_id = $2 AND company_id = $3 AND read_at IS NULL`,
		time.Now(), userID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", ConvertDBError(err))
	}
	return nil
}

// GetPref returns a user's preference for one notification kind, or the
// default (both channels on) when no row exists.
func (r *NotificationRepo) GetPref(ctx context.Context, companyID, userID uuid.UUID, kind string) (*models.NotificationPref, error) {
	var p models.NotificationPref
	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, user_id, kind, email, in_app, updated_at
		FROM notification_prefs WHERE user_id = $1 AND company_id = $2 AND kind = $3`,
		userID, companyID, kind,
	).Scan(&p.ID, &p.CompanyID, &p.UserID, &p.Kind, &p.Email, &p.InApp, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.NotificationPref{
			CompanyID: companyID,
			UserID:    userID,
			Kind:      kind,
			Email:     true,
			InApp:     true,
		}, nil
	}
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &p, nil
}

// ListPrefs returns all stored preference rows for a user.
func (r *NotificationRepo) ListPrefs(ctx context.Context, companyID, userID uuid.UUID) ([]*models.NotificationPref, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, user_id, kind, email, in_app, updated_at
		FROM notification_prefs WHERE user_id = $1 AND company_id = $2 ORDER BY kind`,
		userID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.NotificationPref
	for rows.Next() {
		var p models.NotificationPref
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.UserID, &p.Kind, &p.Email, &p.InApp, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpsertPref writes a preference toggle, inserting on first use.
func (r *NotificationRepo) UpsertPref(ctx context.Context, p *models.NotificationPref) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_prefs (id, company_id, user_id, kind, email, in_app, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, kind)
		DO UPDATE SET email = EXCLUDED.email, in_app = EXCLUDED.in_app, updated_at = EXCLUDED.updated_at`,
		p.ID, p.CompanyID, p.UserID, p.Kind, p.Email, p.InApp, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification pref: %w", ConvertDBError(err))
	}
	return nil
}
