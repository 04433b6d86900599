package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/proprun/internal/adapters/notify"
	"github.com/alejandrodnm/proprun/internal/adapters/storage"
)

var (
	historySince time.Duration
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs",
	Example: `  proprun history
  proprun history --since 168h
  proprun history --run 0f8fad5b-d9cb-469f-a165-70867728950e`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().DurationVar(&historySince, "since", 24*time.Hour, "how far back to look")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "print the stored listings of one run")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historySince <= 0 {
		return fmt.Errorf("--since must be positive, got %s", historySince)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	defer store.Close()

	console := notify.NewConsoleWriter(cmd.OutOrStdout(), true, false)

	if historyRun != "" {
		listings, err := store.GetRunListings(cmd.Context(), historyRun)
		if err != nil {
			return err
		}
		return console.Notify(cmd.Context(), listings)
	}

	now := time.Now().UTC()
	runs, err := store.GetRuns(cmd.Context(), now.Add(-historySince), now)
	if err != nil {
		return err
	}
	console.PrintRuns(runs)
	return nil
}
