// Package main runs the MCP stdio server that forwards chat conversations
// to the ingestion API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mentraflow-backend/interfaces/mcpbridge"
	"mentraflow-backend/pkg/client"
	"mentraflow-backend/pkg/observability"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		apiURL   string
		userID   string
		logLevel string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mentraflow-mcp",
		Short: "MCP stdio server exporting conversations to MentraFlow",
		Long: `Serves the export_to_mentraflow and get_import_status tools over stdio.
Stdout carries the protocol; logs go to stderr.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Production config logs JSON to stderr.
			logger, _, err := observability.NewLogger("production", logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			bridge := mcpbridge.NewBridge(client.New(apiURL, timeout), userID, logger)
			logger.Info("Starting MCP server",
				zap.String("api_url", apiURL),
				zap.Bool("default_user", userID != ""))
			return server.ServeStdio(bridge.NewServer("mentraflow", version))
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", envOr("MENTRAFLOW_API_URL", "http://localhost:8080"), "MentraFlow API base URL")
	cmd.Flags().StringVar(&userID, "user-id", os.Getenv("MENTRAFLOW_USER_ID"), "user id used when a tool call omits one")
	cmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "API request timeout")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
