package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/colsp-platform/colsp/internal/api"
	"github.com/colsp-platform/colsp/internal/api/middleware"
	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/service"
	"github.com/go-chi/chi/v5"
)

// maxAttachmentBytes bounds the in-memory attachment buffer. Anything
// larger is rejected before moderation runs.
const maxAttachmentBytes = 10 << 20

type ReportSubmitter interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitOutcome, error)
}

type ReportFeed interface {
	List(ctx context.Context, cursor string, limit int) (*service.ReportPageResult, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Report, error)
}

type ReactionToggler interface {
	Toggle(ctx context.Context, identity domain.Identity, reportID string, reactionType domain.ReactionType) (map[domain.ReactionType]int, error)
}

type ReportHandler struct {
	submitter ReportSubmitter
	feed      ReportFeed
	reactions ReactionToggler
}

func NewReportHandler(submitter ReportSubmitter, feed ReportFeed, reactions ReactionToggler) *ReportHandler {
	return &ReportHandler{
		submitter: submitter,
		feed:      feed,
		reactions: reactions,
	}
}

type ReportResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	AISummary   string `json:"ai_summary,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func reportToResponse(r *domain.Report) *ReportResponse {
	return &ReportResponse{
		ID:          r.ID,
		Type:        string(r.Type),
		Category:    string(r.Category),
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		AISummary:   r.AISummary,
		Sentiment:   r.Sentiment,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type SubmitResponse struct {
	Status string          `json:"status"`
	Reason string          `json:"reason,omitempty"`
	Report *ReportResponse `json:"report,omitempty"`
}

// Submit handles a multipart report submission.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.UserID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	input := service.SubmitInput{
		Identity:    identity,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Type:        domain.ReportType(r.FormValue("type")),
		Category:    domain.ReportCategory(r.FormValue("category")),
	}

	file, header, err := r.FormFile("attachment")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
		if readErr != nil {
			api.Error(w, http.StatusBadRequest, "failed to read attachment")
			return
		}
		if len(data) > maxAttachmentBytes {
			api.Error(w, http.StatusRequestEntityTooLarge, "attachment too large")
			return
		}
		input.Attachment = &service.Attachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		api.Error(w, http.StatusBadRequest, "invalid attachment")
		return
	}

	outcome, err := h.submitter.Submit(r.Context(), input)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	if outcome.Rejected {
		status := http.StatusBadRequest
		if outcome.Reason == domain.RejectionReasonRateLimit {
			status = http.StatusTooManyRequests
		}
		api.JSON(w, status, SubmitResponse{Status: "rejected", Reason: outcome.Reason})
		return
	}

	api.JSON(w, http.StatusCreated, SubmitResponse{
		Status: "success",
		Report: reportToResponse(outcome.Report),
	})
}

type ReportListResponse struct {
	Items   []*ReportResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

// List returns the public report feed, newest first.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.feed.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*ReportResponse, 0, len(page.Items))
	for _, report := range page.Items {
		items = append(items, reportToResponse(report))
	}

	api.Success(w, http.StatusOK, ReportListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

// GetBySlug returns a single report by its public slug.
func (h *ReportHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	report, err := h.feed.GetBySlug(r.Context(), slug)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, reportToResponse(report))
}

type ReactionRequest struct {
	ReportID string `json:"report_id"`
	Type     string `json:"type"`
}

type ReactionResponse struct {
	Status string         `json:"status"`
	Counts map[string]int `json:"counts"`
}

type GuestRestrictedResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// React toggles the caller's reaction on a report.
func (h *ReportHandler) React(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	counts, err := h.reactions.Toggle(r.Context(), identity, req.ReportID, domain.ReactionType(req.Type))
	if err != nil {
		if errors.Is(err, domain.ErrGuestRestricted) {
			api.JSON(w, http.StatusForbidden, GuestRestrictedResponse{
				Code:    domain.RestrictionCodeGuest,
				Message: "Please verify to interact",
			})
			return
		}
		api.HandleError(w, r, err)
		return
	}

	out := make(map[string]int, len(counts))
	for reactionType, count := range counts {
		out[string(reactionType)] = count
	}

	api.JSON(w, http.StatusOK, ReactionResponse{Status: "success", Counts: out})
}
