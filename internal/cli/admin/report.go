package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/repository"
	"github.com/spf13/cobra"
)

func ReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage submitted reports",
		Long:  "Review and advance the verification lifecycle of reports",
	}

	cmd.AddCommand(ReportStatusCmd())

	return cmd
}

func ReportStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <report-id> <status>",
		Short: "Set the status of a report",
		Long: `Move a report to a new lifecycle status. Valid statuses are
pending, verified, rejected, in_progress and resolved.`,
		Args: cobra.ExactArgs(2),
		RunE: runReportStatus,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReportStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]
	status := domain.ReportStatus(strings.ToLower(args[1]))
	outputFormat, _ := cmd.Flags().GetString("output")

	if !domain.IsValidReportStatus(status) {
		return fmt.Errorf("invalid status %q (expected pending, verified, rejected, in_progress or resolved)", args[1])
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	reportRepo := repository.NewReportRepository(pool)
	if err := reportRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}

	report, err := reportRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load updated report: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         report.ID,
			"slug":       report.Slug,
			"status":     report.Status,
			"updated_at": report.UpdatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Report %s is now %s\n", report.Slug, report.Status)
	}

	return nil
}
