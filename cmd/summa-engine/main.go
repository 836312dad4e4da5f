// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the summa-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/summa-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the summa-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "summa-engine",
	Short: "Research hypothesis engine with Summa-style rendering",
	Long: `summa-engine turns a research question into ranked, citation-grounded
hypotheses rendered as a scholastic disputation. The pipeline frames the
question, retrieves papers from Semantic Scholar, generates and critiques
hypotheses, ranks them pairwise, and composes the winning ones in Summa
Theologica format.

Use "ask" to run the pipeline, "papers" to query retrieval directly, and
"runs" to browse the local run archive.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env values never override variables already in the environment.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./summa-engine.yaml or ~/.config/summa-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("summa-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "summa-engine"))
		}
	}

	viper.SetEnvPrefix("SUMMA_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
