package quickbooks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authorizeURL = "https://appcenter.intuit.com/connect/oauth2"
	tokenURL     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	apiURL       = "https://quickbooks.api.intuit.com"

	// refreshBuffer forces a refresh when the access token is within five
	// minutes of expiry, so an in-flight sync never races the deadline.
	refreshBuffer = 5 * time.Minute
)

// Config holds the OAuth app credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Token is an OAuth token pair with its expiry times.
type Token struct {
	AccessToken           string
	RefreshToken          string
	ExpiresAt             time.Time
	RefreshTokenExpiresAt time.Time
}

// NeedsRefresh reports whether the access token is expired or inside the
// refresh buffer.
func (t Token) NeedsRefresh(now time.Time) bool {
	return !now.Add(refreshBuffer).Before(t.ExpiresAt)
}

// Client talks to the Intuit OAuth endpoints.
type Client struct {
	config     Config
	httpClient *http.Client

	// Endpoint overrides for tests.
	authorizeURL string
	tokenURL     string
	apiURL       string
}

// NewClient creates a client. httpClient may be nil, in which case a
// 30-second default is used.
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		config:       config,
		httpClient:   httpClient,
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		apiURL:       apiURL,
	}
}

// SetEndpoints overrides the Intuit URLs. Used by tests with httptest.
func (c *Client) SetEndpoints(authorize, token, api string) {
	c.authorizeURL = authorize
	c.tokenURL = token
	c.apiURL = api
}

// ConnectURL builds the user-facing authorization URL. The state parameter
// is echoed back on the callback and must be verified there.
func (c *Client) ConnectURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.config.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "com.intuit.quickbooks.accounting")
	q.Set("redirect_uri", c.config.RedirectURL)
	q.Set("state", state)
	return c.authorizeURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int    `json:"expires_in"`
	XRefreshTokenExpires  int    `json:"x_refresh_token_expires_in"`
	TokenType             string `json:"token_type"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

// Exchange trades an authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.config.RedirectURL)

	return c.requestToken(ctx, form)
}

// Refresh trades a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth(c.config.ClientID, c.config.ClientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tr.Error != "" {
		msg := tr.ErrorDescription
		if msg == "" {
			msg = tr.Error
		}
		if msg == "" {
			msg = string(body)
		}
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, msg)
	}

	now := time.Now()
	return &Token{
		AccessToken:           tr.AccessToken,
		RefreshToken:          tr.RefreshToken,
		ExpiresAt:             now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(time.Duration(tr.XRefreshTokenExpires) * time.Second),
	}, nil
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

// QueryCustomers pulls the realm's customers.
func (c *Client) QueryCustomers(ctx context.Context, accessToken, realmID string) ([]json.RawMessage, error) {
	return c.query(ctx, accessToken, realmID, "Customer")
}

// QueryInvoices pulls the realm's invoices.
func (c *Client) QueryInvoices(ctx context.Context, accessToken, realmID string) ([]json.RawMessage, error) {
	return c.query(ctx, accessToken, realmID, "Invoice")
}

// query runs a SELECT against the realm's data API and returns the raw
// records for the entity. Nothing is stored.
func (c *Client) query(ctx context.Context, accessToken, realmID, entity string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s",
		c.apiURL, url.PathEscape(realmID), url.QueryEscape("SELECT * FROM "+entity))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query endpoint returned %d: %s", resp.StatusCode, body)
	}

	var qr struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	raw, ok := qr.QueryResponse[entity]
	if !ok {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s records: %w", entity, err)
	}
	return records, nil
}
