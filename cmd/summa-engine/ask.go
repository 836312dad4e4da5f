// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/summa-engine/internal/archive"
	"github.com/pdiddy/summa-engine/internal/pipeline"
	"github.com/pdiddy/summa-engine/internal/prompt"
	"github.com/pdiddy/summa-engine/internal/reasoner"
	"github.com/pdiddy/summa-engine/internal/retrieval"
	"github.com/pdiddy/summa-engine/internal/secrets"
	"github.com/pdiddy/summa-engine/internal/summa"
	"github.com/pdiddy/summa-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run the full hypothesis pipeline for a research question",
	Long: `Ask runs the seven-stage pipeline: problem framing, paper retrieval,
literature scouting, hypothesis generation, critique, pairwise ranking, and
Summa composition. The result is either a validated final document or a
partial-failure payload naming the stage that failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("domain", "", "domain focus (examples: physics, mathematics, economics)")
	askCmd.Flags().String("objective", "", "brainstorming objective for this run")
	askCmd.Flags().Int("top", 1, "render top 1 or top 3 Summa blocks")
	askCmd.Flags().String("format", "markdown", "output format: markdown or json")
	askCmd.Flags().String("save", "", "optional path to save output")
	askCmd.Flags().String("archive", "", "directory of the run archive; empty disables archiving")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	domain, _ := cmd.Flags().GetString("domain")
	objective, _ := cmd.Flags().GetString("objective")
	top, _ := cmd.Flags().GetInt("top")
	format, _ := cmd.Flags().GetString("format")
	savePath, _ := cmd.Flags().GetString("save")
	archiveDir, _ := cmd.Flags().GetString("archive")

	if format != "markdown" && format != "json" {
		return fmt.Errorf("format must be markdown or json, got %q", format)
	}

	settings := loadSettings()
	engine, err := buildEngine(cmd, settings)
	if err != nil {
		return err
	}

	payload, err := engine.Run(cmd.Context(), pipeline.Request{
		Question:  question,
		Domain:    domain,
		Objective: objective,
		Top:       top,
	})
	if err != nil {
		return err
	}

	if archiveDir != "" {
		store, err := archive.Open(archiveDir)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.SaveRun(cmd.Context(), payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Archived run %s\n", runID)
	}

	text, err := renderPayload(payload, format)
	if err != nil {
		return err
	}
	if savePath != "" {
		if err := os.WriteFile(savePath, []byte(text), 0o644); err != nil {
			return fmt.Errorf("saving output: %w", err)
		}
	}
	fmt.Print(text)

	if payload.IsPartialFailure() {
		fmt.Fprintf(os.Stderr, "Pipeline completed with a partial failure at stage %s\n", payload.Error.Stage)
	}
	return nil
}

// loadSettings reads the environment and folds in the secrets directory for
// keys the environment did not supply.
func loadSettings() types.Settings {
	settings := types.SettingsFromEnv()
	settings.SearchAPIKey = secrets.Value(loadedSecrets, secrets.KeySemanticScholar, settings.SearchAPIKey)
	return settings
}

// buildEngine wires the oracle, prompt library, and retriever for one run.
func buildEngine(cmd *cobra.Command, settings types.Settings) (*pipeline.Engine, error) {
	creds := reasoner.Credentials{
		OpenAIKey:    secrets.Value(loadedSecrets, secrets.KeyOpenAI, os.Getenv("OPENAI_API_KEY")),
		AnthropicKey: secrets.Value(loadedSecrets, secrets.KeyAnthropic, os.Getenv("ANTHROPIC_API_KEY")),
		GeminiKey:    secrets.Value(loadedSecrets, secrets.KeyGemini, os.Getenv("GEMINI_API_KEY")),
	}
	oracle, err := reasoner.New(cmd.Context(), settings.ReasonerModel, creds, nil)
	if err != nil {
		return nil, err
	}

	library, err := prompt.Load()
	if err != nil {
		return nil, err
	}

	var progress io.Writer
	if settings.Verbose {
		progress = os.Stderr
	}
	return pipeline.New(settings, oracle, retrieval.NewClient(settings), library, progress), nil
}

func renderPayload(payload types.Payload, format string) (string, error) {
	if format == "json" {
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding payload: %w", err)
		}
		return string(encoded) + "\n", nil
	}
	return summa.ToMarkdown(payload), nil
}
