package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cvposts-backend/internal/extract"
	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/posts"
	"cvposts-backend/internal/shared/telemetry"
)

var (
	cvPath  string
	outPath string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate posts for a CV file and print the response JSON",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&cvPath, "cv", "", "path to the CV (pdf or docx)")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON response to this file instead of stdout")
	_ = generateCmd.MarkFlagRequired("cv")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	key, err := resolveKey()
	if err != nil {
		return err
	}
	app, err := buildApp()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cvPath)
	if err != nil {
		return fmt.Errorf("read cv: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = telemetry.WithRequestID(ctx, uuid.NewString())

	text, err := extract.ExtractTextFromBytes(ctx, data, "", filepath.Base(cvPath))
	if err != nil {
		return fmt.Errorf("extract cv: %w", err)
	}

	provider, err := app.NewProvider(key)
	if err != nil {
		return err
	}
	client := llm.NewCountingClient(provider)

	gen, err := app.Posts.Generate(ctx, client, text)
	if err != nil {
		return err
	}
	status, body := posts.Render(gen)

	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	telemetry.Info("postgen.done", map[string]any{
		"llm_calls":    client.Calls(),
		"llm_failures": client.Failures(),
		"status":       status,
	})

	if outPath == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return err
	}
	return os.WriteFile(outPath, raw, 0o644)
}
