// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/roi-brief/internal/ledger"
	"github.com/pdiddy/roi-brief/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [input-file]",
	Short: "Brief every account in a run payload",
	Long: `Run reads a trigger payload (JSON or YAML) from the named file, or from
stdin when no file or "-" is given, and processes each account through
fetch, extract and generate. Accounts fail independently; the run summary
is printed once every account is done and recorded in the run ledger.

The command exits non-zero when the payload is invalid or any account
failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("simulate", false, "use the canned insight instead of calling the model")
	runCmd.Flags().String("date", "", "logical run date YYYY-MM-DD (default: payload date or today UTC)")
	runCmd.Flags().String("output", "json", "summary format: json or yaml")
	runCmd.Flags().Bool("no-ledger", false, "do not record the run in the ledger")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	data, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := types.ParseRunInput(data)
	if err != nil {
		return err
	}

	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		in.Bedrock.Simulate = true
	}
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		in.Date = date
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid run input: %w", err)
	}

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runner, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}

	summary := runner.Run(ctx, in.Accounts, in.Options(time.Now()))

	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger && cfg.Ledger.Path != "" {
		recordRun(cmd, cfg.Ledger.Path, summary)
	}

	format, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd.OutOrStdout(), format, summary); err != nil {
		return err
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d of %d account(s) failed", summary.Failed, summary.Total)
	}
	return nil
}

// recordRun stores the summary in the ledger. A ledger failure is logged and
// does not change the run outcome.
func recordRun(cmd *cobra.Command, path string, summary types.RunSummary) {
	store, err := ledger.Open(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not open run ledger")
		return
	}
	defer store.Close()

	if err := store.Record(cmd.Context(), summary); err != nil {
		logger.Warn().Err(err).Str("run_id", summary.RunID).Msg("could not record run")
		return
	}
	logger.Debug().Str("run_id", summary.RunID).Str("path", path).Msg("recorded run")
}

// readInput returns the payload from the named file, or from stdin when no
// file or "-" is given.
func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading run input from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading run input: %w", err)
	}
	return data, nil
}

// writeOutput encodes v as indented JSON or as YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
