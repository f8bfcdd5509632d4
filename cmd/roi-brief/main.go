// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the roi-brief CLI.
//
// The run subcommand drives the whole pipeline for a trigger payload; fetch
// and extract expose the first two stages on their own; history reads the
// run ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/roi-brief/internal/logging"
	"github.com/pdiddy/roi-brief/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials read from the secrets directory at
	// startup.
	loadedSecrets secrets.Secrets

	// logger is configured in PersistentPreRunE from the logging settings.
	logger = logging.Silent()

	// configErr is a config file that exists but could not be read.
	configErr error
)

// rootCmd is the base command for the roi-brief CLI.
var rootCmd = &cobra.Command{
	Use:   "roi-brief",
	Short: "Daily account ROI briefs from SEC filings",
	Long: `roi-brief turns public SEC EDGAR filings into short account briefs.

For each account in a run it downloads the company's submissions and XBRL
facts, derives revenue growth and sales-and-marketing intensity, asks a
language model for a structured insight, renders an HTML brief, stores every
artifact and emails the brief.

Configuration comes from roi-brief.yaml (in . or ~/.config/roi-brief/) and
ROI_BRIEF_* environment variables. Credentials may be placed as files in
.secrets/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return fmt.Errorf("reading config: %w", configErr)
		}
		logger = logging.New(viper.GetString("logging.level"), viper.GetString("logging.format"), os.Stderr)
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug().Str("file", f).Msg("using config file")
		}

		s, err := secrets.Load(viper.GetString("secrets_dir"), logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug().Strs("keys", s.Names()).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./roi-brief.yaml or ~/.config/roi-brief/roi-brief.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("roi-brief")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "roi-brief"))
		}
	}

	viper.SetEnvPrefix("ROI_BRIEF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configErr = viper.ReadInConfig()
	if configErr != nil && cfgFile == "" {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(configErr, &notFound) {
			configErr = nil
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
