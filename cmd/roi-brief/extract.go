// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/roi-brief/internal/extract"
	"github.com/pdiddy/roi-brief/internal/fetch"
	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [cik...]",
	Short: "Derive feature records from stored raw documents",
	Long: `Extract reads the raw documents stored for each CIK on the given date,
derives the KPI feature record and saves it under features/<date>/<cik>.json.
Use --fetch to download the raw documents first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("date", "", "logical date YYYY-MM-DD of the raw documents (default: today UTC)")
	extractCmd.Flags().Bool("fetch", false, "fetch the raw documents before extracting")
	extractCmd.Flags().String("output", "json", "output format: json or yaml")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
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
	extractor := extract.New(store, logger)
	doFetch, _ := cmd.Flags().GetBool("fetch")
	fetcher := newFetcher(cfg, store)

	var (
		records []types.FeatureRecord
		failed  int
	)
	for _, cik := range args {
		rec, err := extractOne(ctx, fetcher, extractor, cik, date, doFetch)
		if err != nil {
			logger.Error().Err(err).Str("cik", cik).Str("kind", string(types.KindOf(err))).Msg("extract failed")
			failed++
			continue
		}
		records = append(records, rec)
	}

	format, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd.OutOrStdout(), format, records); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d CIK(s) failed", failed, len(args))
	}
	return nil
}

func extractOne(ctx context.Context, fetcher *fetch.Fetcher, extractor *extract.Extractor, cik, date string, doFetch bool) (types.FeatureRecord, error) {
	var ref types.RawFilingRef
	if doFetch {
		var err error
		if ref, err = fetcher.Fetch(ctx, types.Account{CIK: cik}, date); err != nil {
			return types.FeatureRecord{}, err
		}
	} else {
		normalized, err := types.NormalizeCIK(cik)
		if err != nil {
			return types.FeatureRecord{}, err
		}
		ref = types.RawFilingRef{
			CIK:            normalized,
			Date:           date,
			SubmissionsKey: objectstore.RawSubmissionsKey(date, normalized),
			FactsKey:       objectstore.RawFactsKey(date, normalized),
		}
	}

	rec, err := extractor.Extract(ctx, ref)
	if err != nil {
		return types.FeatureRecord{}, err
	}
	if _, err := extractor.Save(ctx, rec, date); err != nil {
		return types.FeatureRecord{}, err
	}
	return rec, nil
}
