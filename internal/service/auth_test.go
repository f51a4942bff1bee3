package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessionRepository mocks the session repository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func TestAuthService_ValidateSession_Success(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("GetByToken", mock.Anything, "token-1").Return(&domain.Session{
		Token:     "token-1",
		UserID:    "user-1",
		IsGuest:   true,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	identity, err := svc.ValidateSession(context.Background(), "token-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", identity.UserID)
	assert.True(t, identity.IsGuest)
}

func TestAuthService_ValidateSession_UnknownToken(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("GetByToken", mock.Anything, "nope").Return(nil, domain.ErrSessionNotFound)

	_, err := svc.ValidateSession(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_ValidateSession_Expired(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("GetByToken", mock.Anything, "token-1").Return(&domain.Session{
		Token:     "token-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	_, err := svc.ValidateSession(context.Background(), "token-1")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_ValidateSession_EmptyToken(t *testing.T) {
	svc := NewAuthService(new(MockSessionRepository))

	_, err := svc.ValidateSession(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_ValidateSession_RepositoryErrorSurfaces(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("GetByToken", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := svc.ValidateSession(context.Background(), "token-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_IssueSession_Success(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == "user-1" && !s.IsGuest &&
			strings.HasPrefix(s.Token, "cst_") &&
			s.ExpiresAt.Sub(s.CreatedAt) == 24*time.Hour
	})).Return(nil)

	session, err := svc.IssueSession(context.Background(), "user-1", false, 24*time.Hour)
	require.NoError(t, err)

	assert.Len(t, session.Token, len("cst_")+64)
	repo.AssertExpectations(t)
}

func TestAuthService_IssueSession_EmptyUser(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	_, err := svc.IssueSession(context.Background(), "", false, time.Hour)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	repo.AssertNotCalled(t, "Create")
}

func TestAuthService_IssueSession_TokensAreUnique(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := NewAuthService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	first, err := svc.IssueSession(context.Background(), "user-1", true, time.Hour)
	require.NoError(t, err)
	second, err := svc.IssueSession(context.Background(), "user-1", true, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
}
