//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/testutil"
)

func TestChatRepository_LastByUser(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	for i := 0; i < 7; i++ {
		turn := &domain.ChatTurn{
			ID:                uuid.NewString(),
			UserID:            "student-1",
			UserMessage:       fmt.Sprintf("pesan ke-%d", i),
			AssistantResponse: fmt.Sprintf("jawaban ke-%d", i),
			Timestamp:         base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, turn))
	}

	// Another user's turns never leak into the window.
	other := &domain.ChatTurn{
		ID:                uuid.NewString(),
		UserID:            "student-2",
		UserMessage:       "pesan orang lain",
		AssistantResponse: "jawaban orang lain",
		Timestamp:         base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, other))

	turns, err := repo.LastByUser(ctx, "student-1", 5)
	require.NoError(t, err)
	require.Len(t, turns, 5)

	// The five most recent turns, returned oldest-first for the prompt.
	assert.Equal(t, "pesan ke-2", turns[0].UserMessage)
	assert.Equal(t, "pesan ke-6", turns[4].UserMessage)
	for i := 1; i < len(turns); i++ {
		assert.True(t, turns[i].Timestamp.After(turns[i-1].Timestamp))
	}
}

func TestChatRepository_LastByUser_Empty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	turns, err := repo.LastByUser(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
