package quickbooks

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/v1/quickbooks/callback",
	}
}

func TestTokenNeedsRefresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"fresh", now.Add(time.Hour), false},
		{"inside buffer", now.Add(2 * time.Minute), true},
		{"expired", now.Add(-time.Minute), true},
		{"exactly at buffer", now.Add(refreshBuffer), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Token{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, tok.NeedsRefresh(now))
		})
	}
}

func TestConnectURL(t *testing.T) {
	client := NewClient(testConfig(), nil)

	raw := client.ConnectURL("nonce-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "appcenter.intuit.com", u.Host)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "com.intuit.quickbooks.accounting", q.Get("scope"))
	assert.Equal(t, "nonce-123", q.Get("state"))
}

func TestExchange(t *testing.T) {
	var gotGrant, gotCode, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotCode = r.PostForm.Get("code")
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at-1",
			"refresh_token": "rt-1",
			"expires_in": 3600,
			"x_refresh_token_expires_in": 8640000,
			"token_type": "bearer"
		}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)

	tok, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotGrant)
	assert.Equal(t, "auth-code", gotCode)
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
	assert.Equal(t, wantAuth, gotAuth)

	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600,"x_refresh_token_expires_in":8640000}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)

	tok, err := client.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)
	assert.Equal(t, "rt-2", tok.RefreshToken)
}

func TestExchangeErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)

	_, err := client.Exchange(context.Background(), "stale-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code expired")
}
