package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FilesystemStore stores objects under a root directory. Content types are
// kept in a ".meta" sidecar next to each object so Get can report them back.
type FilesystemStore struct {
	root    string
	baseURL string
	secret  []byte
}

// NewFilesystemStore creates the root directory if needed. baseURL is the
// public prefix signed URLs are built from, e.g. "http://localhost:8080/blobs".
func NewFilesystemStore(root, baseURL string, secret []byte) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FilesystemStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  secret,
	}, nil
}

func (s *FilesystemStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes the object and its content-type sidecar atomically enough for
// local use: the data file lands first, then the sidecar.
func (s *FilesystemStore) Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	path, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create blob dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.WriteFile(path+".meta", []byte(contentType), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write blob metadata: %w", err)
	}
	return n, nil
}

// Get opens the object and returns its stored content type.
func (s *FilesystemStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}

	path, err := s.path(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open blob: %w", err)
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(path + ".meta"); err == nil {
		contentType = string(meta)
	}
	return f, contentType, nil
}

// Delete removes the object and its sidecar.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	os.Remove(path + ".meta")
	return nil
}

// SignedURL returns baseURL/<key>?expires=<unix>&sig=<hmac>. The signature
// covers the key and expiry so the URL cannot be retargeted or extended.
func (s *FilesystemStore) SignedURL(key string, ttl time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}

	expires := time.Now().Add(ttl).Unix()
	sig := s.sign(key, expires)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	return s.baseURL + "/" + key + "?" + q.Encode(), nil
}

// VerifySignature checks a signed URL's query parameters against the key.
func (s *FilesystemStore) VerifySignature(key string, expires int64, sig string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := s.sign(key, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *FilesystemStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
