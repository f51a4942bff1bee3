// Package hf wraps the Hugging Face inference endpoints used for
// classification, embeddings, and text generation. The API has a quirk the
// rest of the system must never see: a cold model answers 503 with a
// suggested retry delay until it finishes loading.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/colsp-platform/colsp/internal/domain"
)

// Default inference endpoints. All are overridable through Config so tests
// and self-hosted deployments can point elsewhere.
const (
	DefaultSpamModelURL     = "https://router.huggingface.co/hf-inference/models/mshenoda/roberta-spam"
	DefaultToxicModelURL    = "https://router.huggingface.co/hf-inference/models/unitary/toxic-bert"
	DefaultNSFWModelURL     = "https://router.huggingface.co/hf-inference/models/Falconsai/nsfw_image_detection"
	DefaultEmbedModelURL    = "https://router.huggingface.co/hf-inference/models/intfloat/multilingual-e5-large/pipeline/feature-extraction"
	DefaultGenerateModelURL = "https://router.huggingface.co/hf-inference/models/HuggingFaceH4/zephyr-7b-beta"
)

const (
	defaultMaxAttempts = 3
	defaultWarmupWait  = 5 * time.Second
	maxWarmupWait      = 15 * time.Second

	classifyTimeout = 10 * time.Second
	imageTimeout    = 30 * time.Second
	embedTimeout    = 20 * time.Second
	generateTimeout = 40 * time.Second
)

var (
	// ErrModelWarmingUp is returned when every attempt found the model
	// still loading.
	ErrModelWarmingUp = errors.New("model is still warming up")
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has an unexpected size
	ErrWrongDimensions = fmt.Errorf("embedding has wrong dimensions, expected %d", domain.EmbeddingDimensions)
)

// Config holds the configuration for the inference client.
type Config struct {
	APIKey           string
	SpamModelURL     string
	ToxicModelURL    string
	NSFWModelURL     string
	EmbedModelURL    string
	GenerateModelURL string
	MaxAttempts      int
	WarmupWait       time.Duration
	HTTPClient       *http.Client
}

// Client is a retrying wrapper over the Hugging Face inference API. It is
// safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a new inference client with defaults filled in.
func NewClient(cfg Config) *Client {
	if cfg.SpamModelURL == "" {
		cfg.SpamModelURL = DefaultSpamModelURL
	}
	if cfg.ToxicModelURL == "" {
		cfg.ToxicModelURL = DefaultToxicModelURL
	}
	if cfg.NSFWModelURL == "" {
		cfg.NSFWModelURL = DefaultNSFWModelURL
	}
	if cfg.EmbedModelURL == "" {
		cfg.EmbedModelURL = DefaultEmbedModelURL
	}
	if cfg.GenerateModelURL == "" {
		cfg.GenerateModelURL = DefaultGenerateModelURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.WarmupWait <= 0 {
		cfg.WarmupWait = defaultWarmupWait
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// DetectGambling scores text with the spam/gambling classifier. The
// positive class is located by label name, never by position: the model's
// label order is not part of its contract.
func (c *Client) DetectGambling(ctx context.Context, text string) domain.Score {
	if strings.TrimSpace(text) == "" {
		return domain.ScoreOf(0)
	}
	labels, err := c.classifyText(ctx, c.cfg.SpamModelURL, text, classifyTimeout)
	if err != nil {
		log.Printf("hf: gambling check unavailable: %v", err)
		return domain.ScoreUnavailable()
	}
	for _, l := range labels {
		upper := strings.ToUpper(l.Label)
		if upper == "SPAM" || upper == "LABEL_1" {
			return domain.ScoreOf(l.Score)
		}
	}
	return domain.ScoreOf(0)
}

// DetectToxicity scores text with the toxicity classifier. Prefers a label
// containing "toxic", falling back to the first entry.
func (c *Client) DetectToxicity(ctx context.Context, text string) domain.Score {
	if strings.TrimSpace(text) == "" {
		return domain.ScoreOf(0)
	}
	labels, err := c.classifyText(ctx, c.cfg.ToxicModelURL, text, classifyTimeout)
	if err != nil {
		log.Printf("hf: toxicity check unavailable: %v", err)
		return domain.ScoreUnavailable()
	}
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l.Label), "toxic") || strings.ToUpper(l.Label) == "LABEL_1" {
			return domain.ScoreOf(l.Score)
		}
	}
	if len(labels) > 0 {
		return domain.ScoreOf(labels[0].Score)
	}
	return domain.ScoreOf(0)
}

// DetectImageNSFW scores raw image bytes with the NSFW classifier, taking
// the highest score among labels in the NSFW family.
func (c *Client) DetectImageNSFW(ctx context.Context, image []byte) domain.Score {
	if len(image) == 0 {
		return domain.ScoreOf(0)
	}

	body, err := c.post(ctx, c.cfg.NSFWModelURL, "application/octet-stream", image, imageTimeout)
	if err != nil {
		log.Printf("hf: nsfw check unavailable: %v", err)
		return domain.ScoreUnavailable()
	}

	labels, err := decodeLabelScores(body)
	if err != nil {
		log.Printf("hf: nsfw response malformed: %v", err)
		return domain.ScoreUnavailable()
	}

	score := 0.0
	for _, l := range labels {
		lower := strings.ToLower(l.Label)
		for _, needle := range []string{"nsfw", "sexual", "porn", "explicit"} {
			if strings.Contains(lower, needle) && l.Score > score {
				score = l.Score
			}
		}
	}
	return domain.ScoreOf(score)
}

// Embed converts text to a vector of domain.EmbeddingDimensions floats.
// The feature-extraction endpoint sometimes answers with a batch of one
// ([[...]]) and sometimes with a flat vector; both are normalized here.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(map[string]interface{}{"inputs": []string{text}})
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, c.cfg.EmbedModelURL, "application/json", payload, embedTimeout)
	if err != nil {
		return nil, err
	}

	vector, err := decodeVector(body)
	if err != nil {
		return nil, err
	}
	if len(vector) != domain.EmbeddingDimensions {
		return nil, ErrWrongDimensions
	}
	return vector, nil
}

// Generate runs the text-generation endpoint once per attempt and returns
// the generated text. Unlike the classifier calls this surfaces errors;
// the chat orchestrator owns the user-facing fallback.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}

	payload, err := json.Marshal(map[string]interface{}{
		"inputs": prompt,
		"parameters": map[string]interface{}{
			"max_new_tokens":   512,
			"temperature":      0.7,
			"return_full_text": false,
		},
	})
	if err != nil {
		return "", err
	}

	body, err := c.post(ctx, c.cfg.GenerateModelURL, "application/json", payload, generateTimeout)
	if err != nil {
		return "", err
	}

	var results []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("malformed generation response: %w", err)
	}
	if len(results) == 0 {
		return "", errors.New("empty generation response")
	}
	return strings.TrimSpace(results[0].GeneratedText), nil
}

func (c *Client) classifyText(ctx context.Context, url, text string, timeout time.Duration) ([]labelScore, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}
	body, err := c.post(ctx, url, "application/json", payload, timeout)
	if err != nil {
		return nil, err
	}
	return decodeLabelScores(body)
}

type warmupResponse struct {
	EstimatedTime float64 `json:"estimated_time"`
}

// post runs one inference request with warming-up retries. Each attempt
// gets its own timeout; the sleep between attempts honors the
// server-suggested delay, capped so a request cannot hang unbounded.
func (c *Client) post(ctx context.Context, url, contentType string, payload []byte, timeout time.Duration) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		body, retryAfter, err := c.postOnce(ctx, url, contentType, payload, timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if retryAfter <= 0 {
			return nil, err
		}
		if retryAfter > maxWarmupWait {
			retryAfter = maxWarmupWait
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter):
		}
	}

	return nil, lastErr
}

// postOnce returns a positive retryAfter only for the warming-up signal.
func (c *Client) postOnce(ctx context.Context, url, contentType string, payload []byte, timeout time.Duration) ([]byte, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, 0, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		wait := c.cfg.WarmupWait
		var warmup warmupResponse
		if err := json.Unmarshal(body, &warmup); err == nil && warmup.EstimatedTime > 0 {
			wait = time.Duration(warmup.EstimatedTime * float64(time.Second))
		}
		return nil, wait, ErrModelWarmingUp
	default:
		return nil, 0, fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, truncateBody(body))
	}
}

// decodeLabelScores accepts both a flat label list and a batch of one.
func decodeLabelScores(body []byte) ([]labelScore, error) {
	var apiError struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != "" {
		return nil, fmt.Errorf("inference API error: %s", apiError.Error)
	}

	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("empty classification response")
		}
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	return nil, fmt.Errorf("malformed classification response: %s", truncateBody(body))
}

// decodeVector accepts [0.1, ...] and [[0.1, ...]].
func decodeVector(body []byte) ([]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("empty embedding response")
		}
		return nested[0], nil
	}

	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	return nil, fmt.Errorf("malformed embedding response: %s", truncateBody(body))
}

func truncateBody(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
