package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func completionWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestClient_GenerateReportMetadata_Success(t *testing.T) {
	api := new(MockCompletionAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(
		completionWith(`{"sentiment": "Negatif", "summary": "AC di ruang 203 rusak.", "final_title": "Kerusakan AC Ruang 203"}`),
		nil,
	)

	client := NewClientWithAPI(api, "")
	metadata := client.GenerateReportMetadata(context.Background(), "AC ruang 203 rusak sudah seminggu", "ac rusak")

	assert.Equal(t, "Negatif", metadata.Sentiment)
	assert.Equal(t, "AC di ruang 203 rusak.", metadata.Summary)
	assert.Equal(t, "Kerusakan AC Ruang 203", metadata.FinalTitle)
	api.AssertExpectations(t)
}

func TestClient_GenerateReportMetadata_StripsMarkdownFences(t *testing.T) {
	api := new(MockCompletionAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(
		completionWith("```json\n{\"sentiment\": \"Positif\", \"summary\": \"Apresiasi layanan.\", \"final_title\": \"Apresiasi\"}\n```"),
		nil,
	)

	client := NewClientWithAPI(api, "")
	metadata := client.GenerateReportMetadata(context.Background(), "pelayanan bagus", "apresiasi")

	assert.Equal(t, "Positif", metadata.Sentiment)
	assert.Equal(t, "Apresiasi", metadata.FinalTitle)
}

func TestClient_GenerateReportMetadata_OracleFailureFallsBack(t *testing.T) {
	api := new(MockCompletionAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(
		openai.ChatCompletionResponse{}, errors.New("quota exceeded"),
	)

	client := NewClientWithAPI(api, "")
	description := strings.Repeat("keluhan panjang ", 20)
	metadata := client.GenerateReportMetadata(context.Background(), description, "judul user")

	assert.Equal(t, "Netral", metadata.Sentiment)
	assert.Equal(t, "judul user", metadata.FinalTitle)
	assert.Equal(t, description[:100]+"...", metadata.Summary)
}

func TestClient_GenerateReportMetadata_MalformedJSONFallsBack(t *testing.T) {
	api := new(MockCompletionAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(
		completionWith("maaf, saya tidak bisa membantu"),
		nil,
	)

	client := NewClientWithAPI(api, "")
	metadata := client.GenerateReportMetadata(context.Background(), "deskripsi singkat", "")

	assert.Equal(t, "Netral", metadata.Sentiment)
	assert.Equal(t, "Laporan Tanpa Judul", metadata.FinalTitle)
	assert.Equal(t, "deskripsi singkat", metadata.Summary)
}

func TestFallbackMetadata_EmptyTitle(t *testing.T) {
	metadata := FallbackMetadata("deskripsi", "  ")
	assert.Equal(t, "Laporan Tanpa Judul", metadata.FinalTitle)
	assert.Equal(t, "Netral", metadata.Sentiment)
}
