package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
)

// ClientMeta is optional request metadata stored alongside a session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// SessionManager issues and validates opaque bearer tokens. Only the sha256
// of a token is persisted.
type SessionManager struct {
	repo *Repository
	log  *logger.Logger
	ttl  time.Duration
	now  func() time.Time
}

func NewSessionManager(repo *Repository, log *logger.Logger, ttl time.Duration) *SessionManager {
	return &SessionManager{
		repo: repo,
		log:  log.With("service", "SessionManager"),
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue creates a new session for userID and returns its raw token.
func (m *SessionManager) Issue(ctx context.Context, userID uint, meta ClientMeta) (string, error) {
	return m.issue(ctx, m.repo, userID, meta)
}

func (m *SessionManager) issue(ctx context.Context, repo *Repository, userID uint, meta ClientMeta) (string, error) {
	raw, err := GenerateToken(tokenBytes)
	if err != nil {
		return "", err
	}
	now := m.now()
	s := &models.Session{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(m.ttl),
		UserAgent: optional(meta.UserAgent),
		IPAddress: optional(meta.IPAddress),
	}
	if err := repo.CreateSession(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	m.log.Debug("session issued", "user_id", userID)
	return raw, nil
}

// Resolve returns the user owning a live session for rawToken, or nil when
// the token is empty, unknown or expired.
func (m *SessionManager) Resolve(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, nil
	}
	user, err := m.repo.ResolveUser(ctx, HashToken(rawToken), m.now())
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}

// Refresh pushes the expiry of a live session to now + TTL.
func (m *SessionManager) Refresh(ctx context.Context, rawToken string) (bool, error) {
	if rawToken == "" {
		return false, nil
	}
	now := m.now()
	ok, err := m.repo.ExtendSession(ctx, HashToken(rawToken), now, now.Add(m.ttl))
	if err != nil {
		return false, fmt.Errorf("refresh session: %w", err)
	}
	return ok, nil
}

// Revoke expires the session for rawToken. Unknown or expired tokens are a no-op.
func (m *SessionManager) Revoke(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	if err := m.repo.ExpireSessionByHash(ctx, HashToken(rawToken), m.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *SessionManager) RevokeAll(ctx context.Context, userID uint) error {
	return m.revokeAll(ctx, m.repo, userID)
}

func (m *SessionManager) revokeAll(ctx context.Context, repo *Repository, userID uint) error {
	n, err := repo.ExpireUserSessions(ctx, userID, m.now())
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	m.log.Info("sessions revoked", "user_id", userID, "count", n)
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
