package quickbooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/models"
)

func syncTestServer(t *testing.T, customers, invoices string) (*Client, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Path, "/v3/company/realm-9/query")

		q := r.URL.Query().Get("query")
		queries = append(queries, q)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q == "SELECT * FROM Customer":
			w.Write([]byte(`{"QueryResponse":{"Customer":` + customers + `,"maxResults":2}}`))
		case q == "SELECT * FROM Invoice":
			w.Write([]byte(`{"QueryResponse":{"Invoice":` + invoices + `,"maxResults":3}}`))
		default:
			http.Error(w, "unexpected query", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)
	return client, &queries
}

func syncConn() *models.QuickBooksConnection {
	return &models.QuickBooksConnection{RealmID: "realm-9", AccessToken: "at-1"}
}

func TestSyncCountsFetchedRecords(t *testing.T) {
	client, queries := syncTestServer(t,
		`[{"Id":"1","DisplayName":"Acme"},{"Id":"2","DisplayName":"Globex"}]`,
		`[{"Id":"10"},{"Id":"11"},{"Id":"12"}]`)
	syncer := NewSyncer(client, zap.NewNop())

	result, err := syncer.Sync(context.Background(), uuid.New(), syncConn())
	require.NoError(t, err)

	assert.Equal(t, "realm-9", result.RealmID)
	assert.Equal(t, 2, result.Customers)
	assert.Equal(t, 3, result.Invoices)
	assert.False(t, result.SyncedAt.IsZero())
	assert.Equal(t, []string{"SELECT * FROM Customer", "SELECT * FROM Invoice"}, *queries)
}

func TestSyncEmptyRealm(t *testing.T) {
	// A fresh realm omits the entity key entirely.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"QueryResponse":{}}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)
	syncer := NewSyncer(client, zap.NewNop())

	result, err := syncer.Sync(context.Background(), uuid.New(), syncConn())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Customers)
	assert.Equal(t, 0, result.Invoices)
}

func TestSyncPropagatesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token revoked", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testConfig(), srv.Client())
	client.SetEndpoints(srv.URL, srv.URL, srv.URL)
	syncer := NewSyncer(client, zap.NewNop())

	_, err := syncer.Sync(context.Background(), uuid.New(), syncConn())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
