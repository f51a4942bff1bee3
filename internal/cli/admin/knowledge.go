package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/colsp-platform/colsp/internal/config"
	"github.com/colsp-platform/colsp/internal/hf"
	"github.com/colsp-platform/colsp/internal/repository"
	"github.com/colsp-platform/colsp/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func KnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the knowledge base",
		Long:  "Import and maintain campus knowledge chunks",
	}

	cmd.AddCommand(KnowledgeImportCmd())

	return cmd
}

func KnowledgeImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import scraped Q&A pairs",
		Long: `Import a JSON array of {"question", "answer", "category"} objects
into the knowledge base. Entries with an empty or already-known answer are
skipped. Embeddings are computed inline when possible; entries whose
embedding call fails are stored without one and picked up by the backfill
worker.`,
		Args: cobra.ExactArgs(1),
		RunE: runKnowledgeImport,
	}

	return cmd
}

func runKnowledgeImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var entries []service.ImportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	chunkRepo := repository.NewChunkRepository(pool)
	hfClient := hf.NewClient(hf.Config{APIKey: cfg.HuggingFaceAPIKey})
	knowledgeSvc := service.NewKnowledgeService(chunkRepo, hfClient)

	stats, err := knowledgeSvc.Import(ctx, entries)
	if err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}

	fmt.Printf("Imported %d chunks (%d skipped)\n", stats.Imported, stats.Skipped)
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
