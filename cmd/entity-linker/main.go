// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the entity-linker CLI. It tokenizes
// text documents, links their entities through a DBpedia Spotlight service,
// and optionally persists the annotations for lookup and export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the entity-linker CLI.
var rootCmd = &cobra.Command{
	Use:   "entity-linker",
	Short: "Link entities in text to DBpedia resources",
	Long: `entity-linker sends documents to a DBpedia Spotlight service, aligns the
returned mentions with each document's tokens, and records them as linked
entities. Annotated documents can be stored in a local SQLite database and
queried by DBpedia URI or exported to YAML and JSON.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./entity-linker.yaml or ~/.config/entity-linker/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "annotation store directory (contains annotations.db)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("linker.debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("entity-linker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "entity-linker"))
		}
	}

	viper.SetEnvPrefix("ENTITY_LINKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns a development logger at debug level when debug is set,
// otherwise a production logger that reports warnings and errors.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
