// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/summa-engine/internal/retrieval"
	"github.com/pdiddy/summa-engine/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers [question]",
	Short: "Query the grounded paper catalog directly",
	Long: `Papers runs the retrieval step on its own: it builds the query plan for
the question (plus an optional refined query), searches Semantic Scholar, and
prints the deduplicated catalog without invoking any reasoner stage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPapers,
}

func init() {
	papersCmd.Flags().String("refined-query", "", "additional refined search query")
	papersCmd.Flags().Int("limit", 10, "maximum results per query (capped at 100)")
	papersCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(papersCmd)
}

func runPapers(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	refinedQuery, _ := cmd.Flags().GetString("refined-query")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	settings := loadSettings()
	client := retrieval.NewClient(settings)
	if limit > 0 {
		client.PerQueryLimit = limit
	}

	result := client.RetrieveGroundedPapers(cmd.Context(), question, refinedQuery)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(os.Stderr, "%s\n", result.Message)
	for _, queryErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", queryErr)
	}
	if len(result.Papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-6s  %-60s  %s\n", "Paper ID", "Year", "Title", "DOI")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, paper := range result.Papers {
		fmt.Fprintf(os.Stdout, "%-12s  %-6d  %-60s  %s\n",
			truncate(paper.PaperID, 12), paper.Year, truncate(paper.Title, 60), paper.DOI)
	}
	fmt.Fprintf(os.Stdout, "\n%d paper(s)\n", len(result.Papers))

	if result.Status == types.RetrievalNoCitations {
		return fmt.Errorf("no grounded papers retrieved")
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
