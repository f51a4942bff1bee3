package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/colsp-platform/colsp/internal/domain"
)

const sessionTokenPrefix = "cst_"

// SessionRepository defines the repository interface for sessions
type SessionRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Create(ctx context.Context, session *domain.Session) error
}

// AuthService resolves bearer tokens to caller identities.
type AuthService struct {
	sessions SessionRepository
	now      func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(sessions SessionRepository) *AuthService {
	return &AuthService{
		sessions: sessions,
		now:      time.Now,
	}
}

// ValidateSession resolves a token to the identity it carries. Unknown and
// expired tokens both come back as ErrInvalidSession so callers cannot
// probe which tokens exist.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrInvalidSession
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return domain.Identity{}, domain.ErrInvalidSession
		}
		return domain.Identity{}, err
	}

	if session.Expired(s.now().UTC()) {
		return domain.Identity{}, domain.ErrInvalidSession
	}

	return session.Identity(), nil
}

// IssueSession mints a bearer token for a user. Verification status is
// decided by the caller: guest sessions carry an identity but cannot
// submit reactions.
func (s *AuthService) IssueSession(ctx context.Context, userID string, guest bool, ttl time.Duration) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingRequiredField
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now().UTC()
	session := &domain.Session{
		Token:     token,
		UserID:    userID,
		IsGuest:   guest,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return session, nil
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return sessionTokenPrefix + hex.EncodeToString(bytes), nil
}
