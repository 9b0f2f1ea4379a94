package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cvposts-backend/internal/bootstrap"
	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/shared/config"
)

var (
	apiKey string
	debug  bool
)

var rootCmd = &cobra.Command{
	Use:          "postgen",
	Short:        "Turn a CV into LinkedIn posts from the command line",
	Long:         "postgen runs the same pipeline as the API: extract the CV, analyze it, then write four posts.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "provider API key (default: OPENAI_API_KEY env var)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// resolveKey prefers the flag over OPENAI_API_KEY and validates the prefix
// before anything is sent to the provider.
func resolveKey() (string, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if err := llm.ValidateAPIKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func buildApp() (*bootstrap.App, error) {
	cfg := config.Load()
	if debug {
		cfg.LogLevel = "debug"
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}
