package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colsp-platform/colsp/internal/api/middleware"
	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) HandleTurn(ctx context.Context, userID, message string) (string, error) {
	args := m.Called(ctx, userID, message)
	return args.String(0), args.Error(1)
}

func authenticatedRequest(method, url string, body []byte, identity domain.Identity) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, identity)
	return req.WithContext(ctx)
}

func TestChatHandler_Send_Success(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc)

	mockSvc.On("HandleTurn", mock.Anything, "user-1", "jam buka perpustakaan?").
		Return("Perpustakaan buka pukul 08.00 sampai 16.00.", nil)

	body := `{"message":"jam buka perpustakaan?"}`
	req := authenticatedRequest(http.MethodPost, "/chat", []byte(body), domain.Identity{UserID: "user-1"})
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Send(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ChatResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Perpustakaan buka pukul 08.00 sampai 16.00.", resp.Data.Response)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Send_MissingIdentity(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":"halo"}`)))
	w := httptest.NewRecorder()

	handler.Send(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "HandleTurn")
}

func TestChatHandler_Send_InvalidBody(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc)

	req := authenticatedRequest(http.MethodPost, "/chat", []byte(`{not json`), domain.Identity{UserID: "user-1"})
	w := httptest.NewRecorder()

	handler.Send(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "HandleTurn")
}

func TestChatHandler_Send_EmptyMessage(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc)

	mockSvc.On("HandleTurn", mock.Anything, "user-1", "").
		Return("", domain.ErrEmptyMessage)

	req := authenticatedRequest(http.MethodPost, "/chat", []byte(`{"message":""}`), domain.Identity{UserID: "user-1"})
	w := httptest.NewRecorder()

	handler.Send(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
