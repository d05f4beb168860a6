package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload every dataset from the ERP into the store",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Refresher == nil {
		return fmt.Errorf("ERP license not configured (set STEELTIGER_PROVIDER_LICENSE)")
	}

	if a.Client != nil {
		if _, err := a.Client.Authorize(ctx, ""); err != nil {
			a.Logger.Warn().Err(err).Msg("authorization failed")
		}
	}

	result, refreshErr := a.Refresher.Refresh(ctx)
	out := cmd.OutOrStdout()
	for _, ds := range result.Datasets {
		fmt.Fprintf(out, "%-14s %6d rows\n", ds.Key, ds.Count)
	}
	for _, key := range result.Failed {
		fmt.Fprintf(out, "%-14s failed\n", key)
	}
	return refreshErr
}
