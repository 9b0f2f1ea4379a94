package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cvposts-backend/internal/shared/telemetry"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the API key is accepted by the provider",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	key, err := resolveKey()
	if err != nil {
		return err
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	provider, err := app.NewProvider(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	models, err := provider.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("API key validation failed: %s", telemetry.RedactString(err.Error()))
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid (%d models visible)\n", len(models))
	return err
}
