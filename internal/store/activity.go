package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// ActivityRepo persists the append-only audit log.
type ActivityRepo struct {
	db *sql.DB
}

const activityColumns = `id, company_id, project_id, actor_id, action, entity_type,
	entity_id, old_values, new_values, undone, created_at`

func scanActivity(scan func(dest ...any) error) (*models.ActivityEntry, error) {
	var e models.ActivityEntry
	var oldJSON, newJSON []byte
	err := scan(
		&e.ID, &e.CompanyID, &e.ProjectID, &e.ActorID, &e.Action, &e.EntityType,
		&e.EntityID, &oldJSON, &newJSON, &e.Undone, &e.CreatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	if len(oldJSON) > 0 {
		if err := json.Unmarshal(oldJSON, &e.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	if len(newJSON) > 0 {
		if err := json.Unmarshal(newJSON, &e.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}
	return &e, nil
}

// Insert appends an entry.
func (r *ActivityRepo) Insert(ctx context.Context, e *models.ActivityEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	oldJSON, err := json.Marshal(e.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old_values: %w", err)
	}
	newJSON, err := json.Marshal(e.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, company_id, project_id, actor_id, action, entity_type,
			entity_id, old_values, new_values, undone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.CompanyID, e.ProjectID, e.ActorID, e.Action, e.EntityType,
		e.EntityID, oldJSON, newJSON, e.Undone, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns one entry scoped to a company.
func (r *ActivityRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.ActivityEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activity_log WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanActivity(row.Scan)
}

// ListByProject returns a project's recent activity, newest first.
func (r *ActivityRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID, limit int) ([]*models.ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_log
		 WHERE project_id = $1 AND company_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		projectID, companyID, limit,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var entries []*models.ActivityEntry
	for rows.Next() {
		e, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkUndone flags an entry as undone so it cannot be replayed.
func (r *ActivityRepo) MarkUndone(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE activity_log SET undone = TRUE WHERE id = $1 AND company_id = $2 AND NOT undone`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry undone: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
