// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/roi-brief/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs from the run ledger",
	Long: `History lists runs recorded in the SQLite run ledger, newest first.
Use the show subcommand for one run's per-account results and the account
subcommand for one CIK's outcomes across runs.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the recorded summary of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyAccountCmd = &cobra.Command{
	Use:   "account <cik>",
	Short: "List one account's outcomes across runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryAccount,
}

func init() {
	historyCmd.PersistentFlags().Int("limit", 20, "maximum number of rows")
	historyCmd.PersistentFlags().Bool("json", false, "output as JSON")
	historyCmd.PersistentFlags().Bool("yaml", false, "output as YAML")
	historyCmd.Flags().String("date", "", "only runs for this logical date")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyAccountCmd)
	rootCmd.AddCommand(historyCmd)
}

func openLedger() (*ledger.Store, error) {
	path := viper.GetString("ledger.path")
	if path == "" {
		return nil, fmt.Errorf("ledger.path is not configured")
	}
	return ledger.Open(path)
}

// historyFormat returns "json", "yaml" or "" for the table view.
func historyFormat(cmd *cobra.Command) string {
	if y, _ := cmd.Flags().GetBool("yaml"); y {
		return "yaml"
	}
	if j, _ := cmd.Flags().GetBool("json"); j {
		return "json"
	}
	return ""
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	date, _ := cmd.Flags().GetString("date")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), date, limit)
	if err != nil {
		return err
	}

	if format := historyFormat(cmd); format != "" {
		return writeOutput(cmd.OutOrStdout(), format, runs)
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []ledger.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-10s  %5s  %9s  %6s  %-8s  %s\n",
		"Run", "Date", "Total", "Succeeded", "Failed", "Mode", "Recorded")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		mode := "live"
		if r.Simulate {
			mode = "simulate"
		}
		fmt.Fprintf(w, "%-36s  %-10s  %5d  %9d  %6d  %-8s  %s\n",
			r.RunID, r.Date, r.Total, r.Succeeded, r.Failed, mode, humanize.Time(r.RecordedAt))
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format := historyFormat(cmd)
	if format == "" {
		format = "json"
	}
	return writeOutput(cmd.OutOrStdout(), format, summary)
}

func runHistoryAccount(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	outcomes, err := store.AccountHistory(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	if format := historyFormat(cmd); format != "" {
		return writeOutput(cmd.OutOrStdout(), format, outcomes)
	}

	w := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No results recorded for this account.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-10s  %-8s  %-10s  %s\n", "Run", "Date", "Status", "Stage", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-36s  %-10s  %-8s  %-10s  %s\n",
			o.RunID, o.Date, o.Result.Status, o.Result.Stage, o.Result.ErrorKind)
	}
	return nil
}
