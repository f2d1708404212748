package quickbooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/models"
)

// SyncResult summarizes one sync pass over a realm. The fetched records are
// counted and discarded; nothing is persisted until invoice export ships.
type SyncResult struct {
	RealmID   string    `json:"realm_id"`
	Customers int       `json:"customers"`
	Invoices  int       `json:"invoices"`
	SyncedAt  time.Time `json:"synced_at"`
}

type realmFetcher interface {
	QueryCustomers(ctx context.Context, accessToken, realmID string) ([]json.RawMessage, error)
	QueryInvoices(ctx context.Context, accessToken, realmID string) ([]json.RawMessage, error)
}

// Syncer pulls accounting records from a connected realm.
type Syncer struct {
	client realmFetcher
	logger *zap.Logger
}

func NewSyncer(client realmFetcher, logger *zap.Logger) *Syncer {
	return &Syncer{client: client, logger: logger}
}

// Sync fetches the realm's customers and invoices and reports how many came
// back. The connection must already hold a fresh access token.
func (s *Syncer) Sync(ctx context.Context, companyID uuid.UUID, conn *models.QuickBooksConnection) (*SyncResult, error) {
	customers, err := s.client.QueryCustomers(ctx, conn.AccessToken, conn.RealmID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.client.QueryInvoices(ctx, conn.AccessToken, conn.RealmID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		RealmID:   conn.RealmID,
		Customers: len(customers),
		Invoices:  len(invoices),
		SyncedAt:  time.Now(),
	}

	s.logger.Info("quickbooks sync completed",
		zap.Stringer("company", companyID),
		zap.String("realm", conn.RealmID),
		zap.Int("customers", result.Customers),
		zap.Int("invoices", result.Invoices))

	return result, nil
}
