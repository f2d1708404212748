package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/beamline/beamline/internal/models"
)

// PhotoRepo persists site photos.
type PhotoRepo struct {
	db *sql.DB
}

const photoColumns = `id, company_id, project_id, phase_id, file_key, caption,
	taken_at, tags, created_at, updated_at`

func scanPhoto(scan func(dest ...any) error) (*models.Photo, error) {
	var p models.Photo
	err := scan(
		&p.ID, &p.CompanyID, &p.ProjectID, &p.PhaseID, &p.FileKey, &p.Caption,
		&p.TakenAt, pq.Array(&p.Tags), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &p, nil
}

// Create inserts a photo.
func (r *PhotoRepo) Create(ctx context.Context, p *models.Photo) error {
	now := time.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photos (id, company_id, project_id, phase_id, file_key, caption,
			taken_at, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CompanyID, p.ProjectID, p.PhaseID, p.FileKey, p.Caption,
		p.TakenAt, pq.Array(p.Tags), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a photo by ID scoped to a company.
func (r *PhotoRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Photo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanPhoto(row.Scan)
}

// ListByProject returns a project's photos, newest first.
func (r *PhotoRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.Photo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE project_id = $1 AND company_id = $2 ORDER BY created_at DESC`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows.Scan)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// UpdateMeta writes caption, phase pin and tags.
func (r *PhotoRepo) UpdateMeta(ctx context.Context, p *models.Photo) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE photos SET caption = $1, phase_id = $2, tags = $3, updated_at = $4
		WHERE id = $5 AND company_id = $6`,
		p.Caption, p.PhaseID, pq.Array(p.Tags), p.UpdatedAt, p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update photo: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a photo row.
func (r *PhotoRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM photos WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// AnnotationRepo persists positioned notes on photos.
type AnnotationRepo struct {
	db *sql.DB
}

// Create inserts an annotation.
func (r *AnnotationRepo) Create(ctx context.Context, a *models.PhotoAnnotation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photo_annotations (id, company_id, photo_id, author_id, x, y, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.CompanyID, a.PhotoID, a.AuthorID, a.X, a.Y, a.Note, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", ConvertDBError(err))
	}
	return nil
}

// ListByPhoto returns a photo's annotations oldest first.
func (r *AnnotationRepo) ListByPhoto(ctx context.Context, companyID, photoID uuid.UUID) ([]*models.PhotoAnnotation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, photo_id, author_id, x, y, note, created_at
		FROM photo_annotations WHERE photo_id = $1 AND company_id = $2
		ORDER BY created_at`,
		photoID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var out []*models.PhotoAnnotation
	for rows.Next() {
		var a models.PhotoAnnotation
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.PhotoID, &a.AuthorID, &a.X, &a.Y, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Delete removes an annotation.
func (r *AnnotationRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM photo_annotations WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
