// Package session issues and resolves login sessions.
//
// A session is a server-side record (id, username, expiry) kept in a Store.
// Clients hold an HS256 token whose jti is the session id; a token is only
// accepted while its session is still in the store, so logout is a delete.
package session

import (
	"context"
	"errors"
	"time"

	"salescrm/internal/apierror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions until they expire.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a session for username and returns its signed token.
func (m *Manager) Issue(ctx context.Context, username string) (string, *Session, error) {
	now := m.now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Username,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}

	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, apierror.Storage("Failed to create session", err)
	}
	return token, &s, nil
}

// Resolve verifies token and returns the live session it refers to.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, apierror.Authentication("Invalid or expired session")
	}

	s, err := m.store.Get(ctx, claims.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.Authentication("Session has ended, please log in again")
	}
	if err != nil {
		return nil, apierror.Storage("Failed to load session", err)
	}
	if s.Username != claims.Subject || !m.now().Before(s.ExpiresAt) {
		return nil, apierror.Authentication("Invalid or expired session")
	}
	return s, nil
}

// Revoke ends a session. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return apierror.Storage("Failed to end session", err)
	}
	return nil
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by WithSession, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
