package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/telemetry"
)

// RateLimiter meters accepted submissions per identity. Reserve claims a
// slot atomically before the pipeline runs; Release hands it back when the
// submission is rejected or fails to persist, so only accepted reports
// count against the caller.
type RateLimiter interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Moderator screens a submission before anything is persisted.
type Moderator interface {
	Screen(ctx context.Context, title, description string, attachment *Attachment) (Decision, error)
}

// ReportMetadata is the enrichment produced for an accepted submission.
type ReportMetadata struct {
	Sentiment  string
	Summary    string
	FinalTitle string
}

// MetadataEnricher produces report metadata. Implementations degrade to a
// deterministic fallback internally and never fail the submission.
type MetadataEnricher interface {
	GenerateReportMetadata(ctx context.Context, title, description string) ReportMetadata
}

// AttachmentStore persists uploaded evidence and returns the storage key.
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// ReportRepository defines the repository interface for reports
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
}

// SubmitInput is a parsed report submission.
type SubmitInput struct {
	Identity    domain.Identity
	Title       string
	Description string
	Type        domain.ReportType
	Category    domain.ReportCategory
	Attachment  *Attachment
}

// SubmitOutcome is the terminal result of a submission attempt. Rejections
// are outcomes, not errors: the pipeline worked, the content did not pass.
type SubmitOutcome struct {
	Report   *domain.Report
	Rejected bool
	Reason   string
}

// ReportService runs the submission flow: rate limit check, moderation,
// enrichment, attachment upload, persistence, then quota consumption.
type ReportService struct {
	limiter   RateLimiter
	moderator Moderator
	enricher  MetadataEnricher
	store     AttachmentStore
	repo      ReportRepository
}

// NewReportService creates a new ReportService instance
func NewReportService(limiter RateLimiter, moderator Moderator, enricher MetadataEnricher, store AttachmentStore, repo ReportRepository) *ReportService {
	return &ReportService{
		limiter:   limiter,
		moderator: moderator,
		enricher:  enricher,
		store:     store,
		repo:      repo,
	}
}

// Submit processes one report submission end to end.
func (s *ReportService) Submit(ctx context.Context, input SubmitInput) (*SubmitOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReportService.Submit", telemetry.SpanAttributes{
		UserID:    input.Identity.UserID,
		Operation: "submit",
	})
	defer span.End()

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return nil, domain.ErrEmptyDescription
	}
	if !domain.IsValidReportType(input.Type) {
		return nil, domain.ErrInvalidReportType
	}
	if !domain.IsValidReportCategory(input.Category) {
		return nil, domain.ErrInvalidReportCategory
	}

	key := input.Identity.RateLimitKey()
	reserved, err := s.limiter.Reserve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !reserved {
		return &SubmitOutcome{Rejected: true, Reason: domain.RejectionReasonRateLimit}, nil
	}

	decision, err := s.moderator.Screen(ctx, input.Title, input.Description, input.Attachment)
	if err != nil {
		s.releaseQuota(ctx, key)
		return nil, fmt.Errorf("moderation failed: %w", err)
	}
	if !decision.Allowed {
		s.releaseQuota(ctx, key)
		return &SubmitOutcome{Rejected: true, Reason: decision.Reason}, nil
	}

	metadata := s.enricher.GenerateReportMetadata(ctx, input.Title, input.Description)

	now := time.Now().UTC()
	report := domain.NewReport(
		uuid.New().String(),
		input.Identity.UserID,
		input.Type,
		input.Category,
		metadata.FinalTitle,
		input.Description,
		now,
	)
	report.AISummary = metadata.Summary
	report.Sentiment = metadata.Sentiment

	if s.store != nil && input.Attachment != nil && len(input.Attachment.Data) > 0 {
		storageKey := attachmentKey(report.ID, input.Attachment.Filename)
		if err := s.store.Put(ctx, storageKey, input.Attachment.ContentType, input.Attachment.Data); err != nil {
			// Evidence upload is best effort; the report itself is the
			// record of the complaint.
			log.Printf("report: attachment upload failed for %s: %v", report.ID, err)
		} else {
			report.AttachmentKey = storageKey
		}
	}

	if err := s.repo.Create(ctx, report); err != nil {
		s.releaseQuota(ctx, key)
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	return &SubmitOutcome{Report: report}, nil
}

// releaseQuota hands a reserved slot back when the submission does not
// result in a stored report.
func (s *ReportService) releaseQuota(ctx context.Context, key string) {
	if err := s.limiter.Release(ctx, key); err != nil {
		log.Printf("report: rate limit release failed for %s: %v", key, err)
	}
}

func attachmentKey(reportID, filename string) string {
	base := path.Base(filename)
	if base == "." || base == "/" || base == "" {
		base = "lampiran"
	}
	return fmt.Sprintf("reports/%s/%s", reportID, base)
}
