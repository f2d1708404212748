package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/beamline/beamline/internal/models"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "beamline_session"

// ErrSessionNotFound is returned when a session does not exist or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session represents a logged-in browser session.
type Session struct {
	ID        string      `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	CompanyID uuid.UUID   `json:"company_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// SessionStore defines the interface for session storage implementations
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Set(ctx context.Context, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore keeps sessions in redis with TTL-based expiry.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a session store around an existing client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "session:",
	}
}

// Get retrieves a session. Expired or missing sessions return
// ErrSessionNotFound.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		// Redis TTL normally handles this; clean up if the key outlived it.
		_ = s.client.Del(ctx, s.prefix+sessionID).Err()
		return nil, ErrSessionNotFound
	}

	return &session, nil
}

// Set stores a session with the given TTL.
func (s *RedisSessionStore) Set(ctx context.Context, session *Session, ttl time.Duration) error {
	session.ExpiresAt = time.Now().Add(ttl)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+session.ID, data, ttl).Err()
}

// Delete removes a session (logout).
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}

// NewSession builds a session for a user with a fresh random ID.
func NewSession(user *models.User) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      user.Role,
	}
}

// Identity converts a session into a request identity.
func (s *Session) Identity() *Identity {
	return &Identity{
		UserID:    s.UserID,
		CompanyID: s.CompanyID,
		Email:     s.Email,
		Role:      s.Role,
	}
}
