package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/colsp-platform/colsp/internal/api"
	"github.com/colsp-platform/colsp/internal/api/middleware"
)

type ChatService interface {
	HandleTurn(ctx context.Context, userID, message string) (string, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.UserID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.svc.HandleTurn(r.Context(), identity.UserID, req.Message)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{Response: response})
}
