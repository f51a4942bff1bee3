package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colsp-platform/colsp/internal/repository"
	"github.com/colsp-platform/colsp/internal/service"
	"github.com/spf13/cobra"
)

func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage user sessions",
		Long:  "Mint and clean up bearer session tokens",
	}

	cmd.AddCommand(SessionCreateCmd())
	cmd.AddCommand(SessionCleanupCmd())

	return cmd
}

func SessionCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Mint a session token for a user",
		Long:  "Mint a bearer session token tied to the given user ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionCreate,
	}

	cmd.Flags().Bool("guest", false, "Mark the session as an unverified guest")
	cmd.Flags().Duration("ttl", 7*24*time.Hour, "Session lifetime")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := args[0]
	guest, _ := cmd.Flags().GetBool("guest")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(repository.NewSessionRepository(pool))

	session, err := authSvc.IssueSession(ctx, userID, guest, ttl)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"token":      session.Token,
			"user_id":    session.UserID,
			"is_guest":   session.IsGuest,
			"expires_at": session.ExpiresAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Session created for %s (expires %s)\n", session.UserID, session.ExpiresAt.Format(time.RFC3339))
		fmt.Printf("Token: %s\n", session.Token)
	}

	return nil
}

func SessionCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sessions",
		Long:  "Delete every session past its expiry",
		Args:  cobra.NoArgs,
		RunE:  runSessionCleanup,
	}
}

func runSessionCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	deleted, err := repository.NewSessionRepository(pool).DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	fmt.Printf("Deleted %d expired sessions\n", deleted)
	return nil
}
