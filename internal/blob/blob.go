package blob

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists at the given key.
var ErrNotFound = errors.New("blob not found")

// Store abstracts object storage for documents, photos and voice notes.
type Store interface {
	// Put writes the object at key, replacing any existing content.
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)

	// Get opens the object at key for reading. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-limited download URL for the object.
	SignedURL(key string, ttl time.Duration) (string, error)
}

// ObjectKey builds the canonical storage key for a company-owned object.
func ObjectKey(companyID, objectID uuid.UUID) string {
	return "company/" + companyID.String() + "/" + objectID.String()
}
