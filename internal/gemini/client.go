// Package gemini generates report metadata (sentiment, summary, title)
// through Gemini's OpenAI-compatible endpoint. Enrichment is best-effort:
// every failure path degrades to deterministic fallback metadata so an
// oracle outage can never block a submission that already passed
// moderation.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible API surface.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is the model used for report enrichment.
	DefaultModel = "gemini-2.5-flash"

	requestTimeout = 30 * time.Second

	fallbackSentiment = "Netral"
	fallbackTitle     = "Laporan Tanpa Judul"
	summaryMaxChars   = 100
)

// ReportMetadata is the AI-derived enrichment attached to a report.
type ReportMetadata struct {
	Sentiment  string `json:"sentiment"`
	Summary    string `json:"summary"`
	FinalTitle string `json:"final_title"`
}

// CompletionAPI defines the interface for chat completion calls
type CompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the Gemini chat completion API
type Client struct {
	api   CompletionAPI
	model string
}

// Config holds the configuration for the enrichment client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates a new enrichment client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}
}

// NewClientWithAPI creates a client over an explicit completion API (for testing)
func NewClientWithAPI(api CompletionAPI, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: api, model: model}
}

// GenerateReportMetadata analyzes a report description and returns
// sentiment, a short summary, and a final title. It never fails: any
// oracle or parse error yields FallbackMetadata.
func (c *Client) GenerateReportMetadata(ctx context.Context, description, userTitle string) ReportMetadata {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(description, userTitle),
			},
		},
	})
	if err != nil {
		log.Printf("gemini: enrichment unavailable, using fallback: %v", err)
		return FallbackMetadata(description, userTitle)
	}

	metadata, err := parseMetadata(resp)
	if err != nil {
		log.Printf("gemini: malformed enrichment response, using fallback: %v", err)
		return FallbackMetadata(description, userTitle)
	}

	if metadata.Sentiment == "" {
		metadata.Sentiment = fallbackSentiment
	}
	if metadata.FinalTitle == "" {
		metadata.FinalTitle = fallbackFinalTitle(userTitle)
	}
	if metadata.Summary == "" {
		metadata.Summary = truncateSummary(description)
	}
	return metadata
}

// FallbackMetadata is the deterministic enrichment used when the oracle
// cannot answer.
func FallbackMetadata(description, userTitle string) ReportMetadata {
	return ReportMetadata{
		Sentiment:  fallbackSentiment,
		Summary:    truncateSummary(description),
		FinalTitle: fallbackFinalTitle(userTitle),
	}
}

func fallbackFinalTitle(userTitle string) string {
	if strings.TrimSpace(userTitle) != "" {
		return userTitle
	}
	return fallbackTitle
}

func truncateSummary(description string) string {
	if len(description) <= summaryMaxChars {
		return description
	}
	return description[:summaryMaxChars] + "..."
}

func buildPrompt(description, userTitle string) string {
	title := userTitle
	if strings.TrimSpace(title) == "" {
		title = "KOSONG"
	}
	return fmt.Sprintf(`Anda adalah asisten admin kampus. Analisis laporan mahasiswa berikut:

Laporan: %q
Judul User: %q

Tugas Anda:
1. Tentukan Sentimen (Positif/Negatif/Netral).
2. Buat Ringkasan padat (maksimal 2 kalimat).
3. Jika 'Judul User' adalah KOSONG atau sangat tidak jelas (kurang dari 3 kata), buatkan Judul yang profesional dan deskriptif. Jika Judul User sudah bagus, gunakan judul user tersebut.

Keluarkan HANYA dalam format JSON:
{"sentiment": "Positif/Negatif/Netral", "summary": "Ringkasan anda...", "final_title": "Judul final..."}`, description, title)
}

func parseMetadata(resp openai.ChatCompletionResponse) (ReportMetadata, error) {
	if len(resp.Choices) == 0 {
		return ReportMetadata{}, errors.New("empty completion response")
	}

	// The model sometimes wraps the JSON in markdown fences.
	clean := resp.Choices[0].Message.Content
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var metadata ReportMetadata
	if err := json.Unmarshal([]byte(clean), &metadata); err != nil {
		return ReportMetadata{}, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	return metadata, nil
}
