package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baznta/legal-intel-dashboard/internal/backfill"
	"github.com/baznta/legal-intel-dashboard/internal/config"
	"github.com/baznta/legal-intel-dashboard/internal/store"
)

var (
	backfillStatePath string
	backfillBatchSize int
	backfillExts      []string
	backfillDryRun    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <dir>",
	Short: "Extract metadata for a directory of document text files",
	Long: `Run the extractor over every text file under dir and print one JSON line
per file. Files named <document-uuid>.txt are also saved to the database
when DATABASE_URL is set. Progress is kept in a state file so an
interrupted run resumes where it stopped.

Examples:
  # Report only
  legalintel backfill ./exports --dry-run > report.jsonl

  # Store results for known documents
  DATABASE_URL=postgres://... legalintel backfill ./exports`,
	Args: cobra.ExactArgs(1),
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillStatePath, "state", backfill.DefaultStatePath, "progress state file")
	backfillCmd.Flags().IntVar(&backfillBatchSize, "batch-size", 25, "files between state saves")
	backfillCmd.Flags().StringSliceVar(&backfillExts, "ext", []string{".txt"}, "file extensions to include")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "never write to the database")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	// The report goes to stdout.
	setupLogging(os.Stderr, cfg.LogLevel)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var saver backfill.Saver
	if cfg.DatabaseURL != "" && !backfillDryRun {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		saver = db
		logger.Info("database connected")
	}

	runner := backfill.NewRunner(backfill.Config{
		Dir:        args[0],
		StatePath:  backfillStatePath,
		Extensions: backfillExts,
		BatchSize:  backfillBatchSize,
		DryRun:     backfillDryRun,
	}, saver, cmd.OutOrStdout(), logger)

	sum, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "files=%d extracted=%d stored=%d duplicates=%d errors=%d\n",
		sum.FilesProcessed, sum.Extracted, sum.Stored, sum.Duplicates, sum.Errors)
	return nil
}
