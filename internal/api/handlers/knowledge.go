package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/colsp-platform/colsp/internal/api"
	"github.com/colsp-platform/colsp/internal/api/middleware"
	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/go-chi/chi/v5"
)

type KnowledgeService interface {
	CreateChunk(ctx context.Context, question, answer string, category domain.ChunkCategory) (*domain.KnowledgeChunk, error)
	GetChunk(ctx context.Context, id string) (*domain.KnowledgeChunk, error)
	UpdateChunk(ctx context.Context, id, question, answer string, category domain.ChunkCategory) (*domain.KnowledgeChunk, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type ChunkRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type ChunkResponse struct {
	ID        string `json:"id"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer"`
	Category  string `json:"category"`
	Embedded  bool   `json:"embedded"`
	CreatedAt string `json:"created_at"`
}

func chunkToResponse(c *domain.KnowledgeChunk) *ChunkResponse {
	return &ChunkResponse{
		ID:        c.ID,
		Question:  c.Question,
		Answer:    c.Answer,
		Category:  string(c.Category),
		Embedded:  c.HasEmbedding(),
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()).UserID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chunk, err := h.svc.CreateChunk(r.Context(), req.Question, req.Answer, domain.ChunkCategory(req.Category))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, chunkToResponse(chunk))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	chunk, err := h.svc.GetChunk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()).UserID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chunk, err := h.svc.UpdateChunk(r.Context(), chi.URLParam(r, "id"), req.Question, req.Answer, domain.ChunkCategory(req.Category))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}
