package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// QuickBooksRepo persists Intuit OAuth connections.
type QuickBooksRepo struct {
	db *sql.DB
}

const qbColumns = `id, company_id, realm_id, access_token, refresh_token,
	access_expires_at, refresh_expires_at, active, created_at, updated_at`

func scanQBConnection(scan func(dest ...any) error) (*models.QuickBooksConnection, error) {
	var c models.QuickBooksConnection
	err := scan(
		&c.ID, &c.CompanyID, &c.RealmID, &c.AccessToken, &c.RefreshToken,
		&c.AccessExpiresAt, &c.RefreshExpiresAt, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &c, nil
}

// Activate stores a new connection and deactivates any existing active one
// for the company, in one transaction. The partial unique index on active
// rows backs this up.
func (r *QuickBooksRepo) Activate(ctx context.Context, c *models.QuickBooksConnection) error {
	now := time.Now()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE quickbooks_connections SET active = FALSE, updated_at = $1
		WHERE company_id = $2 AND active`,
		now, c.CompanyID,
	); err != nil {
		return fmt.Errorf("failed to deactivate existing connection: %w", ConvertDBError(err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quickbooks_connections (id, company_id, realm_id, access_token, refresh_token,
			access_expires_at, refresh_expires_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.CompanyID, c.RealmID, c.AccessToken, c.RefreshToken,
		c.AccessExpiresAt, c.RefreshExpiresAt, c.Active, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert connection: %w", ConvertDBError(err))
	}

	return tx.Commit()
}

// GetActive returns the company's active connection.
func (r *QuickBooksRepo) GetActive(ctx context.Context, companyID uuid.UUID) (*models.QuickBooksConnection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+qbColumns+` FROM quickbooks_connections WHERE company_id = $1 AND active`,
		companyID,
	)
	return scanQBConnection(row.Scan)
}

// UpdateTokens writes refreshed tokens and expiries.
func (r *QuickBooksRepo) UpdateTokens(ctx context.Context, c *models.QuickBooksConnection) error {
	c.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE quickbooks_connections SET access_token = $1, refresh_token = $2,
			access_expires_at = $3, refresh_expires_at = $4, updated_at = $5
		WHERE id = $6 AND company_id = $7`,
		c.AccessToken, c.RefreshToken, c.AccessExpiresAt, c.RefreshExpiresAt,
		c.UpdatedAt, c.ID, c.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Disconnect deactivates the company's active connection.
func (r *QuickBooksRepo) Disconnect(ctx context.Context, companyID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE quickbooks_connections SET active = FALSE, updated_at = $1
		WHERE company_id = $2 AND active`,
		time.Now(), companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to disconnect: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
