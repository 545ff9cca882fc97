package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/quota/pkg/cli"
	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/quota"
	"mercator-hq/quota/pkg/quota/report"
)

var reportsFlags struct {
	dbPath    string
	driver    string
	limit     int
	since     time.Duration
	format    string
	olderThan time.Duration
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect and prune archived summary snapshots",
	Long: `Inspect and prune the archive of lowest daily budget snapshots taken
by a running gateway.

The archive location is read from the configuration file unless --db is
given.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived snapshots",
	Long: `List archived snapshots, newest first.

Examples:
  # Last 20 snapshots
  quotad reports list

  # Snapshots of the last day as CSV
  quotad reports list --since 24h --format csv

  # Read a copied archive with the cgo driver
  quotad reports list --db /tmp/reports.db --driver sqlite3`,
	RunE: listReports,
}

var reportsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the entries of the newest snapshot",
	RunE:  showLatestReport,
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots",
	Long: `Delete snapshots older than the given age. Without --older-than the
configured reports.retention is used.

Examples:
  quotad reports prune --older-than 168h`,
	RunE: pruneReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsLatestCmd, reportsPruneCmd)

	reportsCmd.PersistentFlags().StringVar(&reportsFlags.dbPath, "db", "", "snapshot database path (overrides config)")
	reportsCmd.PersistentFlags().StringVar(&reportsFlags.driver, "driver", "", "sqlite driver: sqlite or sqlite3 (overrides config)")
	reportsCmd.PersistentFlags().StringVar(&reportsFlags.format, "format", "text", "output format: text, json, csv")

	reportsListCmd.Flags().IntVar(&reportsFlags.limit, "limit", 20, "maximum number of snapshots")
	reportsListCmd.Flags().DurationVar(&reportsFlags.since, "since", 0, "only snapshots taken within this duration")

	reportsPruneCmd.Flags().DurationVar(&reportsFlags.olderThan, "older-than", 0, "delete snapshots older than this duration")
}

// openReportsArchive opens the archive named by --db or the configuration.
// retention is the configured retention, or zero with --db.
func openReportsArchive() (store report.Store, retention time.Duration, err error) {
	if reportsFlags.dbPath != "" {
		store, err = report.NewSQLiteStore(&report.SQLiteConfig{
			Path:    reportsFlags.dbPath,
			Driver:  reportsFlags.driver,
			WALMode: true,
		})
		if err != nil {
			return nil, 0, err
		}
		return store, 0, nil
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, 0, cli.WrapConfigError(cfgFile, err)
	}
	if !cfg.Reports.Enabled || cfg.Reports.Backend != "sqlite" {
		return nil, 0, cli.NewConfigError("reports", "no persistent report archive configured; use --db")
	}
	if reportsFlags.driver != "" {
		cfg.Reports.SQLite.Driver = reportsFlags.driver
	}
	store, err = openReportStore(&cfg.Reports)
	if err != nil {
		return nil, 0, err
	}
	return store, cfg.Reports.Retention, nil
}

func listReports(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(reportsFlags.format)
	if err != nil {
		return err
	}
	store, _, err := openReportsArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	var since time.Time
	if reportsFlags.since > 0 {
		since = time.Now().Add(-reportsFlags.since)
	}
	snaps, err := store.List(cmd.Context(), since, reportsFlags.limit)
	if err != nil {
		return cli.NewCommandError("reports list", err)
	}

	var data any = snapshotTable(snaps)
	if format == cli.FormatJSON {
		data = snaps
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

func showLatestReport(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(reportsFlags.format)
	if err != nil {
		return err
	}
	store, _, err := openReportsArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Latest(cmd.Context())
	if errors.Is(err, report.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots archived")
		return nil
	}
	if err != nil {
		return cli.NewCommandError("reports latest", err)
	}

	var data any = summaryTable(snap.Entries)
	if format == cli.FormatJSON {
		data = snap
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

func pruneReports(cmd *cobra.Command, args []string) error {
	store, retention, err := openReportsArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	age := reportsFlags.olderThan
	if age <= 0 {
		age = retention
	}
	if age <= 0 {
		return cli.NewConfigError("older-than", "a positive age is required")
	}

	deleted, err := store.Cleanup(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return cli.NewCommandError("reports prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d snapshots older than %s\n", deleted, age)
	return nil
}

// snapshotTable renders snapshots one per row.
type snapshotTable []*report.Snapshot

func (t snapshotTable) Header() []string {
	return []string{"id", "taken_at", "tracked_day", "tracked_week", "tracked_month", "lowest_network", "lowest_remaining"}
}

func (t snapshotTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		network, remaining := "-", "-"
		if len(s.Entries) > 0 {
			network = s.Entries[0].Network
			remaining = formatSeconds(s.Entries[0].Remaining)
		}
		rows = append(rows, []string{
			s.ID,
			s.TakenAt.UTC().Format(time.RFC3339),
			trackedCount(s.Tracked, quota.WindowDay),
			trackedCount(s.Tracked, quota.WindowWeek),
			trackedCount(s.Tracked, quota.WindowMonth),
			network,
			remaining,
		})
	}
	return rows
}

// summaryTable renders summary entries one per row.
type summaryTable []quota.SummaryEntry

func (t summaryTable) Header() []string {
	return []string{"network", "first_byte", "remaining"}
}

func (t summaryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{e.Network, strconv.Itoa(e.FirstByte), formatSeconds(e.Remaining)})
	}
	return rows
}

// trackedCount formats the count for w, or "-" for a disabled window.
func trackedCount(tracked map[quota.Window]int, w quota.Window) string {
	n, ok := tracked[w]
	if !ok {
		return "-"
	}
	return strconv.Itoa(n)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
