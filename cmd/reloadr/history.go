package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reloadr-hq/reloadr/pkg/cli"
	"reloadr-hq/reloadr/pkg/reload/journal"
)

var historyFlags struct {
	symbol string
	status string
	file   string
	since  time.Duration
	limit  int
	offset int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the reload journal",
	Long: `Show recorded reload attempts, newest first.

The journal is read from the SQLite database configured under journal.sqlite.

Examples:
  # Last 100 reloads
  reloadr history

  # Failures of one definition during the last hour, as CSV
  reloadr history --symbol Counter --status failure --since 1h --format csv`,
	Args: cobra.NoArgs,
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.symbol, "symbol", "", "filter by definition name")
	historyCmd.Flags().StringVar(&historyFlags.status, "status", "", "filter by status (success, failure)")
	historyCmd.Flags().StringVar(&historyFlags.file, "file", "", "filter by script path")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only reloads newer than this duration")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", journal.DefaultLimit, "max results")
	historyCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "pagination offset")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
}

// historyRecords lays journal records out as a table.
type historyRecords []*journal.Record

func (r historyRecords) Header() []string {
	return []string{"TIME", "SYMBOL", "KIND", "STATUS", "DURATION", "RETAGGED", "MIGRATED", "ERROR"}
}

func (r historyRecords) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, rec := range r {
		rows = append(rows, []string{
			rec.Timestamp.Format(time.RFC3339),
			rec.Symbol,
			rec.Kind,
			rec.Status,
			rec.Duration.Round(time.Microsecond).String(),
			strconv.Itoa(rec.Retagged),
			strconv.Itoa(rec.Migrated),
			rec.Error,
		})
	}
	return rows
}

func showHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err)
	}
	switch historyFlags.status {
	case "", journal.StatusSuccess, journal.StatusFailure:
	default:
		return cli.NewConfigError("--status", errors.New("must be success or failure"))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Backend != "sqlite" {
		return cli.NewConfigError("journal.backend", errors.New("history needs the sqlite backend"))
	}

	store, err := journal.NewSQLiteStorage(cfg.Journal.SQLite, nil)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	q := &journal.Query{
		Symbol: historyFlags.symbol,
		Status: historyFlags.status,
		File:   historyFlags.file,
		Limit:  historyFlags.limit,
		Offset: historyFlags.offset,
	}
	if historyFlags.since > 0 {
		start := time.Now().Add(-historyFlags.since)
		q.StartTime = &start
	}

	records, err := store.Query(context.Background(), q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), historyRecords(records))
}
