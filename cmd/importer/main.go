// Package main imports a ChatGPT data export into MentraFlow.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mentraflow-backend/infrastructure/importers/chatgpt"
	"mentraflow-backend/pkg/client"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mentraflow-import",
		Short:        "Import chat exports into MentraFlow",
		SilenceUsage: true,
	}
	cmd.AddCommand(newParseCommand(), newSubmitCommand())
	return cmd
}

func newParseCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Print the conversations found in a ChatGPT export as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			conversations, err := chatgpt.LoadFile(file)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(conversations)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "conversations.json", "path to conversations.json")
	return cmd
}

func newSubmitCommand() *cobra.Command {
	var (
		file      string
		apiURL    string
		userID    string
		batchSize int
		wait      bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a ChatGPT export in batches",
		Long: `Parses conversations.json and submits it in batches. The API processes at
most ten conversations per export, so larger batches are truncated server side.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			conversations, err := chatgpt.LoadFile(file)
			if err != nil {
				return err
			}
			if len(conversations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations with text found")
				return nil
			}

			api := client.New(apiURL, timeout)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var importIDs []string
			for i, batch := range chatgpt.Batches(conversations, batchSize) {
				result, err := api.SubmitExport(ctx, userID, batch)
				if err != nil {
					return fmt.Errorf("batch %d: %w", i+1, err)
				}
				importIDs = append(importIDs, result.ImportID)
				fmt.Fprintf(out, "Batch %d: %d conversations queued as %s\n", i+1, len(batch), result.ImportID)
				// Import ids have millisecond resolution.
				time.Sleep(5 * time.Millisecond)
			}

			if !wait {
				return nil
			}
			return waitForImports(ctx, api, importIDs, out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "conversations.json", "path to conversations.json")
	cmd.Flags().StringVar(&apiURL, "api-url", envOr("MENTRAFLOW_API_URL", "http://localhost:8080"), "MentraFlow API base URL")
	cmd.Flags().StringVar(&userID, "user-id", os.Getenv("MENTRAFLOW_USER_ID"), "MentraFlow user id")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "conversations per export")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until every import finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "API request timeout")
	return cmd
}

func waitForImports(ctx context.Context, api *client.Client, importIDs []string, out io.Writer) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	pending := importIDs
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		var still []string
		for _, id := range pending {
			status, err := api.ImportStatus(ctx, id)
			if err != nil {
				return err
			}
			if !status.Status.IsTerminal() {
				still = append(still, id)
				continue
			}
			fmt.Fprintf(out, "%s %s: %d concepts, %d quizzes, %d nodes\n",
				id, status.Status, status.ConceptsExtracted, status.QuizzesGenerated, status.NodesCreated)
		}
		pending = still
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
