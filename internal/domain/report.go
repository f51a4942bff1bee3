package domain

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

// ReportType distinguishes complaints from suggestions.
type ReportType string

const (
	ReportTypeComplaint  ReportType = "complaint"
	ReportTypeSuggestion ReportType = "suggestion"
)

// ReportCategory is the submitter-chosen topic of a report.
type ReportCategory string

const (
	ReportCategoryAcademic       ReportCategory = "academic"
	ReportCategoryFacility       ReportCategory = "facility"
	ReportCategoryFinancial      ReportCategory = "financial"
	ReportCategoryStudentAffairs ReportCategory = "student_affairs"
	ReportCategoryOther          ReportCategory = "other"
)

// ReportStatus tracks the admin-driven verification lifecycle. A report is
// created as pending and never transitions on its own.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusVerified   ReportStatus = "verified"
	ReportStatusRejected   ReportStatus = "rejected"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusResolved   ReportStatus = "resolved"
)

// Report is a moderated, AI-enriched complaint or suggestion. A Report row
// only ever exists for submissions that passed the moderation pipeline.
type Report struct {
	ID            string
	AuthorID      string
	Type          ReportType
	Category      ReportCategory
	Title         string
	Slug          string
	Description   string
	AttachmentKey string
	AISummary     string
	Sentiment     string
	Status        ReportStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewReport creates a pending report. The slug is derived from the title
// plus the first 8 characters of the ID so it stays short but unique.
func NewReport(id, authorID string, reportType ReportType, category ReportCategory, title, description string, now time.Time) *Report {
	return &Report{
		ID:          id,
		AuthorID:    authorID,
		Type:        reportType,
		Category:    category,
		Title:       title,
		Slug:        MakeReportSlug(title, id),
		Description: description,
		Status:      ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MakeReportSlug builds the unique URL slug for a report.
func MakeReportSlug(title, id string) string {
	base := slug.Make(title)
	if base == "" {
		base = "laporan"
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return base + "-" + short
}

// ValidateReport validates a Report instance
func ValidateReport(r *Report) error {
	if r == nil {
		return fmt.Errorf("report cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("report ID is required")
	}

	if r.AuthorID == "" {
		return fmt.Errorf("report AuthorID is required")
	}

	if r.Title == "" {
		return fmt.Errorf("report Title is required")
	}

	if r.Description == "" {
		return ErrEmptyDescription
	}

	if !IsValidReportType(r.Type) {
		return ErrInvalidReportType
	}

	if !IsValidReportCategory(r.Category) {
		return ErrInvalidReportCategory
	}

	if !IsValidReportStatus(r.Status) {
		return fmt.Errorf("report Status is invalid: %s", r.Status)
	}

	return nil
}

// IsValidReportType checks if a ReportType is valid
func IsValidReportType(t ReportType) bool {
	switch t {
	case ReportTypeComplaint, ReportTypeSuggestion:
		return true
	}
	return false
}

// IsValidReportCategory checks if a ReportCategory is valid
func IsValidReportCategory(c ReportCategory) bool {
	switch c {
	case ReportCategoryAcademic, ReportCategoryFacility, ReportCategoryFinancial,
		ReportCategoryStudentAffairs, ReportCategoryOther:
		return true
	}
	return false
}

// IsValidReportStatus checks if a ReportStatus is valid
func IsValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportStatusPending, ReportStatusVerified, ReportStatusRejected,
		ReportStatusInProgress, ReportStatusResolved:
		return true
	}
	return false
}
