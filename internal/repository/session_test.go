//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/testutil"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &domain.Session{
		Token:     "cst_testtoken123",
		UserID:    "student-1",
		IsGuest:   false,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	retrieved, err := repo.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "student-1", retrieved.UserID)
	assert.False(t, retrieved.IsGuest)
	assert.Equal(t, session.ExpiresAt, retrieved.ExpiresAt.UTC())
}

func TestSessionRepository_GetByToken_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	_, err := repo.GetByToken(ctx, "cst_unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	expired := &domain.Session{
		Token:     "cst_expired",
		UserID:    "student-1",
		CreatedAt: now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
	}
	live := &domain.Session{
		Token:     "cst_live",
		UserID:    "student-2",
		IsGuest:   true,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, live))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByToken(ctx, expired.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	kept, err := repo.GetByToken(ctx, live.Token)
	require.NoError(t, err)
	assert.True(t, kept.IsGuest)
}
