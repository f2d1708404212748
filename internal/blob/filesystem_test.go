package blob

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir(), "http://localhost:8080/files", []byte("sign-secret"))
	require.NoError(t, err)
	return store
}

func TestFilesystemRoundTrip(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	key := ObjectKey(uuid.New(), uuid.New())

	n, err := store.Put(ctx, key, "application/pdf", strings.NewReader("drawing revision B"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("drawing revision B")), n)

	rc, contentType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "application/pdf", contentType)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "drawing revision B", string(body))
}

func TestFilesystemGetMissing(t *testing.T) {
	store := newFSStore(t)

	_, _, err := store.Get(context.Background(), ObjectKey(uuid.New(), uuid.New()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemDelete(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	key := ObjectKey(uuid.New(), uuid.New())

	_, err := store.Put(ctx, key, "image/jpeg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	for _, key := range []string{"../outside", "/etc/passwd", "company/../../x"} {
		_, err := store.Put(ctx, key, "text/plain", strings.NewReader("x"))
		assert.Error(t, err, key)
	}
}

func TestSignedURL(t *testing.T) {
	store := newFSStore(t)
	key := ObjectKey(uuid.New(), uuid.New())

	signed, err := store.SignedURL(key, 15*time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(signed, "http://localhost:8080/files/"+key+"?"))

	u, err := url.Parse(signed)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	sig := u.Query().Get("sig")

	assert.True(t, store.VerifySignature(key, expires, sig))
	assert.False(t, store.VerifySignature(key, expires, "bad"))
	assert.False(t, store.VerifySignature("other/key", expires, sig))
}

func TestSignedURLExpiry(t *testing.T) {
	store := newFSStore(t)
	key := ObjectKey(uuid.New(), uuid.New())

	expires := time.Now().Add(-time.Minute).Unix()
	sig := store.sign(key, expires)
	assert.False(t, store.VerifySignature(key, expires, sig))
}

func TestObjectKey(t *testing.T) {
	companyID, objectID := uuid.New(), uuid.New()
	key := ObjectKey(companyID, objectID)
	assert.Equal(t, "company/"+companyID.String()+"/"+objectID.String(), key)
}
