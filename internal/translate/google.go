// Package translate provides best-effort machine translation to English
// for classifiers trained on English corpora.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

	// Inputs are sampled so translation never dominates request latency.
	maxInputChars = 500

	requestTimeout = 10 * time.Second
)

// GoogleTranslator translates text through the public Google Translate
// endpoint. It is fail-open: any error returns the original text so a
// translation outage never blocks moderation.
type GoogleTranslator struct {
	endpoint string
	http     *http.Client
}

// NewGoogleTranslator creates a translator with the default endpoint.
func NewGoogleTranslator() *GoogleTranslator {
	return NewGoogleTranslatorWithEndpoint(defaultEndpoint)
}

// NewGoogleTranslatorWithEndpoint creates a translator against a custom
// endpoint (used in tests).
func NewGoogleTranslatorWithEndpoint(endpoint string) *GoogleTranslator {
	return &GoogleTranslator{
		endpoint: endpoint,
		http:     &http.Client{},
	}
}

// ToEnglish translates text to English, truncated to maxInputChars first.
// On any failure the (truncated) original text is returned.
func (t *GoogleTranslator) ToEnglish(ctx context.Context, text string) string {
	sample := truncateRunes(text, maxInputChars)
	if strings.TrimSpace(sample) == "" {
		return ""
	}

	translated, err := t.translate(ctx, sample)
	if err != nil {
		log.Printf("translate: falling back to original text: %v", err)
		return sample
	}
	return translated
}

// truncateRunes cuts text to at most max runes, never splitting a
// multi-byte character.
func truncateRunes(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

func (t *GoogleTranslator) translate(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", "en")
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return decodeSegments(body)
}

// decodeSegments extracts the translated text from the nested-array
// response ([[["translated","original",...],...],...]).
func decodeSegments(body []byte) (string, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return "", fmt.Errorf("malformed translation response: %w", err)
	}
	if len(outer) == 0 {
		return "", fmt.Errorf("empty translation response")
	}

	var segments [][]interface{}
	if err := json.Unmarshal(outer[0], &segments); err != nil {
		return "", fmt.Errorf("malformed translation segments: %w", err)
	}

	var sb strings.Builder
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		if part, ok := segment[0].(string); ok {
			sb.WriteString(part)
		}
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("translation produced no text")
	}
	return result, nil
}
