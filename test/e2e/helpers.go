//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/colsp-platform/colsp/internal/api/handlers"
	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/gemini"
	"github.com/colsp-platform/colsp/internal/hf"
	"github.com/colsp-platform/colsp/internal/ratelimit"
	"github.com/colsp-platform/colsp/internal/repository"
	"github.com/colsp-platform/colsp/internal/server"
	"github.com/colsp-platform/colsp/internal/service"
	"github.com/colsp-platform/colsp/internal/storage"
	"github.com/colsp-platform/colsp/internal/testutil"
	"github.com/colsp-platform/colsp/internal/translate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sashabaranov/go-openai"
)

// fakeInference stands in for every Hugging Face endpoint. Scores are
// mutable so a test can flip a submission from clean to flagged without
// restarting the stack.
type fakeInference struct {
	mu            sync.Mutex
	gamblingScore float64
	toxicScore    float64
	nsfwScore     float64
	generateReply string

	server *httptest.Server
}

func newFakeInference() *fakeInference {
	f := &fakeInference{
		generateReply: "Perpustakaan buka pukul 08.00 sampai 16.00 WIB.",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spam", func(w http.ResponseWriter, r *http.Request) {
		f.writeLabels(w, "SPAM", f.score(&f.gamblingScore))
	})
	mux.HandleFunc("/toxic", func(w http.ResponseWriter, r *http.Request) {
		f.writeLabels(w, "toxic", f.score(&f.toxicScore))
	})
	mux.HandleFunc("/nsfw", func(w http.ResponseWriter, r *http.Request) {
		f.writeLabels(w, "nsfw", f.score(&f.nsfwScore))
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Inputs []string `json:"inputs"`
		}
		_ = json.Unmarshal(body, &req)
		text := ""
		if len(req.Inputs) > 0 {
			text = req.Inputs[0]
		}
		json.NewEncoder(w).Encode([][]float32{deterministicVector(text)})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		reply := f.generateReply
		f.mu.Unlock()
		json.NewEncoder(w).Encode([]map[string]string{{"generated_text": reply}})
	})
	// Translation passthrough in the gtx nested-array shape.
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		json.NewEncoder(w).Encode([]interface{}{[][]interface{}{{q, q}}})
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeInference) score(field *float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *field
}

func (f *fakeInference) setScores(gambling, toxic, nsfw float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gamblingScore = gambling
	f.toxicScore = toxic
	f.nsfwScore = nsfw
}

func (f *fakeInference) writeLabels(w http.ResponseWriter, label string, score float64) {
	json.NewEncoder(w).Encode([][]map[string]interface{}{{
		{"label": label, "score": score},
		{"label": "other", "score": 1 - score},
	}})
}

func (f *fakeInference) URL(path string) string {
	return f.server.URL + path
}

func (f *fakeInference) Close() {
	f.server.Close()
}

// deterministicVector maps text to a stable unit-ish embedding so nearest
// neighbor ordering is reproducible across calls.
func deterministicVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, domain.EmbeddingDimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed%1000)/1000 - 0.5
	}
	return vec
}

// stubCompletionAPI answers every enrichment call with fixed metadata.
type stubCompletionAPI struct {
	content string
}

func (s *stubCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// multipartBody builds a multipart form for a report submission.
func multipartBody(fields map[string]string, filename string, attachment []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if attachment != nil {
		part, err := writer.CreateFormFile("attachment", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(attachment); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func decodeAPIError(statusCode int, body []byte) error {
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil || apiResp.Error == "" {
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, apiResp.Error)
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Inference    *fakeInference
	AuthSvc      *service.AuthService
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers, fake
// oracles, and a running server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-attachments",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	inference := newFakeInference()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, authSvc := startServer(t, pool, s3Client, inference, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Inference:    inference,
		AuthSvc:      authSvc,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Inference != nil {
		e.Inference.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// NewSession mints a bearer token for the given user.
func (e *E2ETestEnv) NewSession(userID string, guest bool) string {
	session, err := e.AuthSvc.IssueSession(e.Ctx, userID, guest, time.Hour)
	if err != nil {
		e.T.Fatalf("failed to issue session: %v", err)
	}
	return session.Token
}

// startServer wires the full service graph against the fake oracles.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, inference *fakeInference, port int) (string, func(), *service.AuthService) {
	chunkRepo := repository.NewChunkRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	reactionRepo := repository.NewReactionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	hfClient := hf.NewClient(hf.Config{
		SpamModelURL:     inference.URL("/spam"),
		ToxicModelURL:    inference.URL("/toxic"),
		NSFWModelURL:     inference.URL("/nsfw"),
		EmbedModelURL:    inference.URL("/embed"),
		GenerateModelURL: inference.URL("/generate"),
	})
	translator := translate.NewGoogleTranslatorWithEndpoint(inference.URL("/translate"))
	enricher := &geminiEnricher{client: gemini.NewClientWithAPI(&stubCompletionAPI{
		content: `{"sentiment":"negatif","summary":"Ringkasan otomatis laporan.","final_title":"Kerusakan AC Ruang 301"}`,
	}, "gemini-2.0-flash")}

	moderationSvc := service.NewModerationService(hfClient, translator, service.ModerationConfig{
		GamblingThreshold:  0.25,
		ViolationThreshold: 0.44,
		FailOpen:           true,
	})

	limiter := ratelimit.NewMemoryCounter(5*time.Minute, 1)

	retrievalSvc := service.NewRetrievalService(hfClient, chunkRepo)
	chatSvc := service.NewChatService(chatRepo, retrievalSvc, hfClient)
	reportSvc := service.NewReportService(limiter, moderationSvc, enricher, s3Client, reportRepo)
	feedSvc := service.NewReportFeedService(reportRepo)
	reactionSvc := service.NewReactionService(reactionRepo)
	knowledgeSvc := service.NewKnowledgeService(chunkRepo, hfClient)
	authSvc := service.NewAuthService(sessionRepo)

	router := server.NewRouter(server.RouterConfig{
		SessionValidator: authSvc,
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		ReportHandler:    handlers.NewReportHandler(reportSvc, feedSvc, reactionSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, authSvc
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become ready at %s", url)
}

// geminiEnricher adapts the Gemini client to the submission pipeline.
type geminiEnricher struct {
	client *gemini.Client
}

func (e *geminiEnricher) GenerateReportMetadata(ctx context.Context, title, description string) service.ReportMetadata {
	meta := e.client.GenerateReportMetadata(ctx, description, title)
	return service.ReportMetadata{
		Sentiment:  meta.Sentiment,
		Summary:    meta.Summary,
		FinalTitle: meta.FinalTitle,
	}
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Put performs a PUT request with a JSON body
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPut, path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp.StatusCode, respBody)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

// SubmitReport posts a multipart report submission and returns the raw
// status code and body so tests can inspect rejections directly.
func (e *E2ETestEnv) SubmitReport(fields map[string]string, filename string, attachment []byte, authToken string) (int, []byte, error) {
	buf, contentType, err := multipartBody(fields, filename, attachment)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+"/reports", buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// PostRaw posts a JSON body and returns the raw status code and body.
func (e *E2ETestEnv) PostRaw(path string, body interface{}, authToken string) (int, []byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
