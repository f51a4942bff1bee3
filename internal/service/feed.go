package service

import (
	"context"
	"fmt"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/pagination"
)

const (
	defaultFeedPageSize = 20
	maxFeedPageSize     = 100
)

// ReportPageResult is one page of the public report feed.
type ReportPageResult struct {
	Items      []*domain.Report
	NextCursor string
	HasMore    bool
}

// ReportFeedRepository defines the read-side repository for reports.
type ReportFeedRepository interface {
	ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) (*ReportPageResult, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Report, error)
}

// ReportFeedService serves the public, recency-ordered report feed.
type ReportFeedService struct {
	repo ReportFeedRepository
}

// NewReportFeedService creates a new ReportFeedService instance
func NewReportFeedService(repo ReportFeedRepository) *ReportFeedService {
	return &ReportFeedService{repo: repo}
}

// List returns one page of reports, newest first. An empty cursor starts
// from the top of the feed.
func (s *ReportFeedService) List(ctx context.Context, cursorStr string, limit int) (*ReportPageResult, error) {
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid pagination cursor", err)
	}

	if limit <= 0 {
		limit = defaultFeedPageSize
	}
	if limit > maxFeedPageSize {
		limit = maxFeedPageSize
	}

	page, err := s.repo.ListRecent(ctx, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return page, nil
}

// GetBySlug returns a single report by its public slug.
func (s *ReportFeedService) GetBySlug(ctx context.Context, slug string) (*domain.Report, error) {
	return s.repo.GetBySlug(ctx, slug)
}
