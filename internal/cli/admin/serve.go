package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colsp-platform/colsp/internal/api/handlers"
	"github.com/colsp-platform/colsp/internal/config"
	"github.com/colsp-platform/colsp/internal/gemini"
	"github.com/colsp-platform/colsp/internal/hf"
	"github.com/colsp-platform/colsp/internal/jobs"
	"github.com/colsp-platform/colsp/internal/ratelimit"
	"github.com/colsp-platform/colsp/internal/repository"
	"github.com/colsp-platform/colsp/internal/server"
	"github.com/colsp-platform/colsp/internal/service"
	"github.com/colsp-platform/colsp/internal/storage"
	"github.com/colsp-platform/colsp/internal/telemetry"
	"github.com/colsp-platform/colsp/internal/translate"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the colsp API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	reactionRepo := repository.NewReactionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	hfClient := hf.NewClient(hf.Config{APIKey: cfg.HuggingFaceAPIKey})
	if !cfg.HasHuggingFace() {
		log.Println("HUGGINGFACE_API_KEY not set; inference calls run unauthenticated")
	}

	var store service.AttachmentStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		store = s3Client
	} else {
		log.Println("S3 not configured; report attachments will not be stored")
	}

	var limiter service.RateLimiter
	if cfg.HasRedis() {
		redisCounter, err := ratelimit.NewRedisCounter(ctx, cfg.RedisAddr, cfg.RateLimitWindow, cfg.RateLimitMax)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		limiter = redisCounter
		log.Println("connected to redis")
	} else {
		limiter = ratelimit.NewMemoryCounter(cfg.RateLimitWindow, cfg.RateLimitMax)
		log.Println("REDIS_ADDR not set; using in-process rate limiter")
	}

	var enricher service.MetadataEnricher
	if cfg.HasGemini() {
		enricher = &geminiEnricher{client: gemini.NewClient(gemini.Config{APIKey: cfg.GeminiAPIKey})}
	} else {
		enricher = &fallbackEnricher{}
		log.Println("GEMINI_API_KEY not set; report enrichment uses fallback metadata")
	}

	moderationSvc := service.NewModerationService(hfClient, translate.NewGoogleTranslator(), service.ModerationConfig{
		GamblingThreshold:  cfg.GamblingThreshold,
		ViolationThreshold: cfg.ViolationThreshold,
		FailOpen:           cfg.ModerationFailOpen,
	})

	retrievalSvc := service.NewRetrievalService(hfClient, chunkRepo)
	chatSvc := service.NewChatService(chatRepo, retrievalSvc, hfClient)
	reportSvc := service.NewReportService(limiter, moderationSvc, enricher, store, reportRepo)
	feedSvc := service.NewReportFeedService(reportRepo)
	reactionSvc := service.NewReactionService(reactionRepo)
	knowledgeSvc := service.NewKnowledgeService(chunkRepo, hfClient)
	authSvc := service.NewAuthService(sessionRepo)

	backfillWorker := jobs.NewWorker(jobs.NewEmbeddingBackfill(chunkRepo, hfClient), 30*time.Second)
	go backfillWorker.Start(ctx)
	log.Println("embedding backfill worker started")

	cleanupWorker := jobs.NewWorker(jobs.NewSessionCleanup(sessionRepo), 10*time.Minute)
	go cleanupWorker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		SessionValidator: authSvc,
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		ReportHandler:    handlers.NewReportHandler(reportSvc, feedSvc, reactionSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	backfillWorker.Stop()
	cleanupWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
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

// fallbackEnricher is used when no enrichment oracle is configured.
type fallbackEnricher struct{}

func (e *fallbackEnricher) GenerateReportMetadata(ctx context.Context, title, description string) service.ReportMetadata {
	meta := gemini.FallbackMetadata(description, title)
	return service.ReportMetadata{
		Sentiment:  meta.Sentiment,
		Summary:    meta.Summary,
		FinalTitle: meta.FinalTitle,
	}
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
