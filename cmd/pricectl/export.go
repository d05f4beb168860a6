package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/export"
)

var (
	exportOut     string
	exportRefresh bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the product catalog with prices as an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "catalogo.xlsx", "output file")
	exportCmd.Flags().BoolVar(&exportRefresh, "refresh", false, "reload every dataset from the ERP first")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureData(ctx, a, exportRefresh); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	entries := a.Datasets.Catalog(ctx)

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer f.Close()

	if err := export.WriteCatalog(f, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d products to %s\n", len(entries), exportOut)
	return nil
}
