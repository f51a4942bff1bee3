package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colsp-platform/colsp/internal/domain"
)

// ReactionRepository defines the repository interface for reactions.
// Toggle applies the one-reaction-per-user rule atomically: same type
// removes, different type replaces, no existing row inserts.
type ReactionRepository interface {
	Toggle(ctx context.Context, reaction *domain.Reaction) error
	CountsByReport(ctx context.Context, reportID string) (map[domain.ReactionType]int, error)
}

// ReactionService handles reactions on published reports. Guests can read
// reaction counts but cannot leave reactions.
type ReactionService struct {
	repo ReactionRepository
}

// NewReactionService creates a new ReactionService instance
func NewReactionService(repo ReactionRepository) *ReactionService {
	return &ReactionService{repo: repo}
}

// Toggle applies one reaction for the caller and returns the updated
// per-type counts for the report. Every valid type appears in the result,
// zero included, so clients can render the full reaction bar.
func (s *ReactionService) Toggle(ctx context.Context, identity domain.Identity, reportID string, reactionType domain.ReactionType) (map[domain.ReactionType]int, error) {
	if identity.UserID == "" || identity.IsGuest {
		return nil, domain.ErrGuestRestricted
	}

	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if !domain.IsValidReactionType(reactionType) {
		return nil, domain.ErrInvalidReactionType
	}

	reaction := &domain.Reaction{
		UserID:    identity.UserID,
		ReportID:  reportID,
		Type:      reactionType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Toggle(ctx, reaction); err != nil {
		return nil, err
	}

	return s.Counts(ctx, reportID)
}

// Counts returns the per-type reaction counts for a report with every
// valid type present.
func (s *ReactionService) Counts(ctx context.Context, reportID string) (map[domain.ReactionType]int, error) {
	counts, err := s.repo.CountsByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}

	full := make(map[domain.ReactionType]int, len(domain.ReactionTypes()))
	for _, t := range domain.ReactionTypes() {
		full[t] = counts[t]
	}
	return full, nil
}
