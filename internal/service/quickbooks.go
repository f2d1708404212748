package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/quickbooks"
)

// QuickBooksService manages the company's Intuit connection: the OAuth
// dance, token refresh and the accounting sync.
type QuickBooksService struct {
	deps Deps
}

// ConnectURL returns the Intuit authorization URL for the OAuth redirect.
// The caller supplies an opaque state value it will verify on callback.
func (s *QuickBooksService) ConnectURL(id *auth.Identity, state string) (string, error) {
	if !id.Can(auth.QuickBooksManage) {
		return "", auth.ErrForbidden
	}
	return s.deps.QBClient.ConnectURL(state), nil
}

// CompleteConnect exchanges the OAuth code and activates the connection,
// deactivating any previous one for the company.
func (s *QuickBooksService) CompleteConnect(ctx context.Context, id *auth.Identity, code, realmID string) (*models.QuickBooksConnection, error) {
	if !id.Can(auth.QuickBooksManage) {
		return nil, auth.ErrForbidden
	}
	if code == "" || realmID == "" {
		return nil, NewValidationErrorf("code", "code and realm id are required")
	}

	token, err := s.deps.QBClient.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	conn := &models.QuickBooksConnection{
		CompanyID:        id.CompanyID,
		RealmID:          realmID,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		AccessExpiresAt:  token.ExpiresAt,
		RefreshExpiresAt: token.RefreshTokenExpiresAt,
		Active:           true,
	}
	if err := s.deps.Store.QuickBooks.Activate(ctx, conn); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("quickbooks connected",
		zap.Stringer("company", id.CompanyID), zap.String("realm", realmID))
	return conn, nil
}

// ConnectionStatus bundles the active connection with the record counts
// waiting on export.
type ConnectionStatus struct {
	Connection     *models.QuickBooksConnection `json:"connection"`
	PendingPayApps int                          `json:"pending_pay_apps"`
	PendingWaivers int                          `json:"pending_waivers"`
}

// Status returns the active connection and how many approved payment
// applications and signed waivers a sync would cover.
func (s *QuickBooksService) Status(ctx context.Context, id *auth.Identity) (*ConnectionStatus, error) {
	conn, err := s.deps.Store.QuickBooks.GetActive(ctx, id.CompanyID)
	if err != nil {
		return nil, err
	}

	payapps, err := s.deps.Store.PayApps.CountByStatus(ctx, id.CompanyID, models.PayAppApproved)
	if err != nil {
		return nil, err
	}
	waivers, err := s.deps.Store.Waivers.CountByStatus(ctx, id.CompanyID, models.WaiverSigned)
	if err != nil {
		return nil, err
	}

	return &ConnectionStatus{
		Connection:     conn,
		PendingPayApps: payapps,
		PendingWaivers: waivers,
	}, nil
}

// Sync refreshes the token if needed and runs the accounting sync.
func (s *QuickBooksService) Sync(ctx context.Context, id *auth.Identity) (*quickbooks.SyncResult, error) {
	if !id.Can(auth.QuickBooksManage) {
		return nil, auth.ErrForbidden
	}

	conn, err := s.deps.Store.QuickBooks.GetActive(ctx, id.CompanyID)
	if err != nil {
		return nil, err
	}
	conn, err = s.ensureFresh(ctx, conn)
	if err != nil {
		return nil, err
	}
	return s.deps.QBSyncer.Sync(ctx, id.CompanyID, conn)
}

// SyncCompany runs the sync without an acting user. The background
// quickbooks.sync job calls this.
func (s *QuickBooksService) SyncCompany(ctx context.Context, companyID uuid.UUID) (*quickbooks.SyncResult, error) {
	conn, err := s.deps.Store.QuickBooks.GetActive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	conn, err = s.ensureFresh(ctx, conn)
	if err != nil {
		return nil, err
	}
	return s.deps.QBSyncer.Sync(ctx, companyID, conn)
}

// Disconnect deactivates the company's connection.
func (s *QuickBooksService) Disconnect(ctx context.Context, id *auth.Identity) error {
	if !id.Can(auth.QuickBooksManage) {
		return auth.ErrForbidden
	}
	return s.deps.Store.QuickBooks.Disconnect(ctx, id.CompanyID)
}

// ensureFresh refreshes the access token when it is inside the refresh
// buffer, persisting the new pair.
func (s *QuickBooksService) ensureFresh(ctx context.Context, conn *models.QuickBooksConnection) (*models.QuickBooksConnection, error) {
	current := quickbooks.Token{
		AccessToken:           conn.AccessToken,
		RefreshToken:          conn.RefreshToken,
		ExpiresAt:             conn.AccessExpiresAt,
		RefreshTokenExpiresAt: conn.RefreshExpiresAt,
	}
	if !current.NeedsRefresh(time.Now()) {
		return conn, nil
	}

	fresh, err := s.deps.QBClient.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return nil, err
	}

	conn.AccessToken = fresh.AccessToken
	conn.RefreshToken = fresh.RefreshToken
	conn.AccessExpiresAt = fresh.ExpiresAt
	conn.RefreshExpiresAt = fresh.RefreshTokenExpiresAt

	if err := s.deps.Store.QuickBooks.UpdateTokens(ctx, conn); err != nil {
		return nil, err
	}

	s.deps.Logger.Debug("quickbooks token refreshed",
		zap.Stringer("company", conn.CompanyID))
	return conn, nil
}
