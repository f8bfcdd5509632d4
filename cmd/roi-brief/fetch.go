// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [cik...]",
	Short: "Download raw EDGAR documents for one or more CIKs",
	Long: `Fetch downloads the submissions and company facts documents for each
CIK and stores them under raw/<date>/<cik>/. Existing objects for the same
date are overwritten. The stored references are printed as JSON or YAML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("date", "", "logical date YYYY-MM-DD used in object keys (default: today UTC)")
	fetchCmd.Flags().String("output", "json", "output format: json or yaml")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := objectstore.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening object store: %w", err)
	}
	fetcher := newFetcher(cfg, store)

	var (
		refs   []types.RawFilingRef
		failed int
	)
	for _, cik := range args {
		ref, err := fetcher.Fetch(ctx, types.Account{CIK: cik}, date)
		if err != nil {
			logger.Error().Err(err).Str("cik", cik).Str("kind", string(types.KindOf(err))).Msg("fetch failed")
			failed++
			continue
		}
		refs = append(refs, ref)
	}

	format, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd.OutOrStdout(), format, refs); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d CIK(s) failed", failed, len(args))
	}
	return nil
}

// dateFlag returns the --date flag, validated, or today's UTC date.
func dateFlag(cmd *cobra.Command) (string, error) {
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		return time.Now().UTC().Format(types.DateLayout), nil
	}
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return "", fmt.Errorf("--date: %q is not YYYY-MM-DD", date)
	}
	return date, nil
}
