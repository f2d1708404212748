package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// APIKeyRepo persists service credentials.
type APIKeyRepo struct {
	db *sql.DB
}

const apiKeyColumns = `id, company_id, name, prefix, hash, created_by,
	last_used_at, revoked_at, created_at`

func scanAPIKey(scan func(dest ...any) error) (*models.APIKey, error) {
	var k models.APIKey
	err := scan(
		&k.ID, &k.CompanyID, &k.Name, &k.Prefix, &k.Hash, &k.CreatedBy,
		&k.LastUsedAt, &k.RevokedAt, &k.CreatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &k, nil
}

// Insert writes a new key row.
func (r *APIKeyRepo) Insert(ctx context.Context, k *models.APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	k.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, company_id, name, prefix, hash, created_by,
			last_used_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		k.ID, k.CompanyID, k.Name, k.Prefix, k.Hash, k.CreatedBy,
		k.LastUsedAt, k.RevokedAt, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", ConvertDBError(err))
	}
	return nil
}

// GetByPrefix looks up a live key for authentication. Prefix is globally
// unique, so this is not company-scoped.
func (r *APIKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1 AND revoked_at IS NULL`,
		prefix,
	)
	return scanAPIKey(row.Scan)
}

// List returns a company's keys, including revoked ones.
func (r *APIKeyRepo) List(ctx context.Context, companyID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE company_id = $1 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke stamps revoked_at. Revoking twice is a no-op error (ErrNotFound).
func (r *APIKeyRepo) Revoke(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = $1
		WHERE id = $2 AND company_id = $3 AND revoked_at IS NULL`,
		time.Now(), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// TouchLastUsed records key usage. Best effort; callers ignore the error.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	return err
}
