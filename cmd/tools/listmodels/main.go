package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/service/ai"
)

type listOptions struct {
	action  string
	json    bool
	timeout time.Duration
}

// ModelLister is the part of a provider the command needs.
type ModelLister interface {
	ListModels(ctx context.Context) ([]catalog.Model, error)
}

func newRootCmd() *cobra.Command {
	opts := listOptions{}

	cmd := &cobra.Command{
		Use:   "listmodels",
		Short: "List the models the configured API key can reach",
		Long: `List the models the configured API key can reach.

Reads the same environment (and .env file) as the API server.

Examples:
  listmodels                          # every model
  listmodels --action generateContent # only models that can chat
  listmodels --json                   # output as JSON`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Printf("[WARN] failed to load .env, using system environment: %v", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			provider, err := ai.NewProvider(ctx, cfg.AI)
			if err != nil {
				return fmt.Errorf("failed to create %s client: %w", cfg.AI.Provider, err)
			}

			return runList(ctx, cmd.OutOrStdout(), provider, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.action, "action", "a", "", "Only list models supporting this action")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	return cmd
}

func runList(ctx context.Context, out io.Writer, lister ModelLister, opts listOptions) error {
	fmt.Fprintln(out, "--- Listing available models ---")

	models, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("error fetching models: %w", err)
	}

	if opts.action != "" {
		filtered := models[:0]
		for _, m := range models {
			if m.Supports(opts.action) {
				filtered = append(filtered, m)
			}
		}
		models = filtered
	}

	if len(models) == 0 {
		fmt.Fprintln(out, "No models found.")
		return nil
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	for _, m := range models {
		fmt.Fprintf(out, "ID: %s | Supported: %v\n", m.Name, m.SupportedActions)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
