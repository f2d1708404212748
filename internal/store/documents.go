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

// DocumentRepo persists project documents.
type DocumentRepo struct {
	db *sql.DB
}

const documentColumns = `id, company_id, project_id, title, file_key, content_type,
	size_bytes, tags, uploaded_by, version, created_at, updated_at`

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var d models.Document
	err := scan(
		&d.ID, &d.CompanyID, &d.ProjectID, &d.Title, &d.FileKey, &d.ContentType,
		&d.SizeBytes, pq.Array(&d.Tags), &d.UploadedBy, &d.Version,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &d, nil
}

// Create inserts a document. The version is one more than the highest
// existing version under the same title in the project.
func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	now := time.Now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = now
	d.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, company_id, project_id, title, file_key, content_type,
			size_bytes, tags, uploaded_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			COALESCE((SELECT MAX(version) + 1 FROM documents
				WHERE project_id = $3 AND title = $4), 1),
			$10, $11)
		RETURNING version`,
		d.ID, d.CompanyID, d.ProjectID, d.Title, d.FileKey, d.ContentType,
		d.SizeBytes, pq.Array(d.Tags), d.UploadedBy, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.Version)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a document by ID scoped to a company.
func (r *DocumentRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanDocument(row.Scan)
}

// ListByProject returns a project's documents, newest version first.
func (r *DocumentRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = $1 AND company_id = $2
		 ORDER BY title, version DESC`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateMeta writes title and tags.
func (r *DocumentRepo) UpdateMeta(ctx context.Context, d *models.Document) error {
	d.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET title = $1, tags = $2, updated_at = $3
		WHERE id = $4 AND company_id = $5`,
		d.Title, pq.Array(d.Tags), d.UpdatedAt, d.ID, d.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a document row. The caller is responsible for the blob.
func (r *DocumentRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
