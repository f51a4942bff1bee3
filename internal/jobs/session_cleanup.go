package jobs

import (
	"context"
	"fmt"
	"log"
)

// SessionStore is the session persistence surface the cleanup job needs.
type SessionStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionCleanup removes expired sessions. Stale rows are harmless for
// correctness (expiry is checked on every request) but accumulate forever
// without it.
type SessionCleanup struct {
	sessions SessionStore
}

func NewSessionCleanup(sessions SessionStore) *SessionCleanup {
	return &SessionCleanup{sessions: sessions}
}

// ProcessJobs deletes every session past its expiry.
func (c *SessionCleanup) ProcessJobs(ctx context.Context) error {
	deleted, err := c.sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if deleted > 0 {
		log.Printf("session cleanup: removed %d expired sessions", deleted)
	}
	return nil
}
