// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/summa-engine/internal/archive"
	"github.com/pdiddy/summa-engine/internal/summa"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse the local run archive",
	Long: `Runs lists and re-reads pipeline runs archived with "ask --archive".
Use "runs list" for an overview and "runs show <id>" for a full document.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().String("archive", "archive", "directory of the run archive")
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsShowCmd.Flags().String("format", "markdown", "output format: markdown or json")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	dir, _ := cmd.Flags().GetString("archive")
	return archive.Open(dir)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-16s  %s\n", "Run ID", "Created", "Status", "Question")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, rec := range records {
		status := rec.Status
		if rec.ErrorStage != "" {
			status = fmt.Sprintf("%s (%s)", rec.Status, rec.ErrorStage)
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-16s  %s\n",
			rec.ID, rec.CreatedAt.Format(time.DateTime), status, truncate(rec.Question, 40))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "markdown" && format != "json" {
		return fmt.Errorf("format must be markdown or json, got %q", format)
	}

	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec.Payload)
	}
	fmt.Print(summa.ToMarkdown(rec.Payload))
	return nil
}
