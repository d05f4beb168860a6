package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

var (
	queryPhone   string
	queryCode    string
	queryLimit   int
	queryRefresh bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a free-text price question",
	Long:  "Answer a free-text price question and print the answer and matches as JSON.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryPhone, "phone", "p", "", "client phone number, selects the client's price list")
	queryCmd.Flags().StringVarP(&queryCode, "code", "c", "", "exact product code for a direct lookup")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum number of matches (0 for no cap)")
	queryCmd.Flags().BoolVar(&queryRefresh, "refresh", false, "reload every dataset from the ERP first")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureData(ctx, a, queryRefresh); err != nil {
		a.Logger.Warn().Err(err).Msg("refresh before query failed")
	}

	result, err := a.Queries.Answer(ctx, domain.QueryRequest{
		Question:    strings.Join(args, " "),
		PhoneNumber: queryPhone,
		ProductCode: queryCode,
		Limit:       queryLimit,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
