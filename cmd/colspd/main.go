package main

import (
	"fmt"
	"os"

	"github.com/colsp-platform/colsp/internal/cli"
	"github.com/colsp-platform/colsp/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "colspd",
		Short: "Colsp daemon and CLI",
		Long:  "Colsp daemon for running the campus support API server and managing knowledge, sessions and reports",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.KnowledgeCmd())
	rootCmd.AddCommand(admin.SessionCmd())
	rootCmd.AddCommand(admin.ReportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
