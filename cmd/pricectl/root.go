package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/steeltiger-middleware/config"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/app"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "pricectl",
	Short:        "Steel Tiger price query tool",
	Long:         "pricectl runs the same price query engine as the HTTP service against the configured dataset store.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level to stderr")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and wires the application. Logs go to stderr so
// stdout stays machine readable.
func setup() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "pricectl",
	})

	return app.New(context.Background(), cfg, logger)
}

// ensureData refreshes the store when it holds no products yet, which is
// always the case for a fresh in-memory store
func ensureData(ctx context.Context, a *app.App, force bool) error {
	if !force && len(a.Store.GetDataset(ctx, domain.DatasetProducts).Rows) > 0 {
		return nil
	}
	if a.Refresher == nil {
		if force {
			return fmt.Errorf("%w: set STEELTIGER_PROVIDER_LICENSE", domain.ErrProviderNotConfigured)
		}
		return nil
	}
	_, err := a.Refresher.Refresh(ctx)
	return err
}
