package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"butlercal/internal/config"
	"butlercal/internal/gcal"
	"butlercal/internal/logger"
	"butlercal/internal/scraper"
	"butlercal/internal/sync"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagScrapers   []string
	flagConfigPath string
	flagCalendarID string
	flagDaysBack   int
	flagDaysAhead  int
	flagDryRun     bool
	flagForceSync  bool
	flagFormat     string
	flagVerbose    bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "butlercal",
		Short: "Scrape event listings and sync them into Google Calendar",
		Long: `Scrapes event listings from registered web sources and reconciles them
into Google Calendar: missing events are created, and with --force-sync
events that disappeared from the sources are removed.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newDeleteAllCmd())
	cmd.AddCommand(newListScrapersCmd())

	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync events from scrapers to Google Calendar",
		RunE:  runSync,
	}

	cmd.Flags().StringSliceVar(&flagScrapers, "scrapers", nil, "Scrapers to run (default: all registered)")
	cmd.Flags().StringVar(&flagConfigPath, "config-path", "", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&flagCalendarID, "calendar-id", "", "Default calendar ID (falls back to CALENDAR_ID env var)")
	cmd.Flags().IntVar(&flagDaysBack, "days-back", 7, "Days in the past to fetch events")
	cmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 90, "Days in the future to fetch events")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Report intended changes without touching the calendar")
	cmd.Flags().BoolVar(&flagForceSync, "force-sync", false, "Also remove events no longer present in the scraped sources")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	return cmd
}

// runSync is the main command logic
func runSync(cmd *cobra.Command, args []string) error {
	setupLogging()

	format := OutputFormat(flagFormat)
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}

	names := flagScrapers
	if len(names) == 0 {
		names = scraper.Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("no scrapers specified or registered")
	}

	scrapers := make([]scraper.Scraper, 0, len(names))
	for _, name := range names {
		s, err := scraper.New(name, cfg.Scraper(name))
		if err != nil {
			return fmt.Errorf("initializing scraper: %w", err)
		}
		scrapers = append(scrapers, s)
	}

	client, err := gcal.NewClient(cmd.Context())
	if err != nil {
		return err
	}

	defaultCalendarID := flagCalendarID
	if defaultCalendarID == "" {
		defaultCalendarID = config.DefaultCalendarID()
	}

	engine := &sync.Engine{
		API:               client,
		DefaultCalendarID: defaultCalendarID,
		DaysBack:          flagDaysBack,
		DaysAhead:         flagDaysAhead,
		DryRun:            flagDryRun,
		RemoveStale:       flagForceSync,
	}

	report := engine.Run(cmd.Context(), scrapers)

	// Per-item failures are already logged and counted; the run still exits 0.
	return WriteReport(os.Stdout, report, format)
}

func newDeleteAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-all [CALENDAR_ID]",
		Short: "Delete all events from the calendar",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDeleteAll,
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Report what would be deleted without touching the calendar")

	return cmd
}

func runDeleteAll(cmd *cobra.Command, args []string) error {
	setupLogging()

	calendarID := ""
	if len(args) > 0 {
		calendarID = args[0]
	}
	if calendarID == "" {
		calendarID = config.DefaultCalendarID()
	}
	if calendarID == "" {
		return fmt.Errorf("no calendar ID provided: pass one as an argument or set the %s environment variable", config.EnvCalendarID)
	}

	client, err := gcal.NewClient(cmd.Context())
	if err != nil {
		return err
	}

	engine := &sync.Engine{API: client, DryRun: flagDryRun}
	report, err := engine.DeleteAll(cmd.Context(), calendarID)
	if err != nil {
		return err
	}

	if flagDryRun {
		fmt.Printf("Dry run: would delete %d events from calendar %s\n", len(report.ToDelete), calendarID)
		return nil
	}

	fmt.Printf("All events deleted from calendar %s (%d deleted, %d failed)\n",
		calendarID, report.Deleted, report.Failed)
	return nil
}

func newListScrapersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-scrapers",
		Short: "List all available scrapers",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := scraper.Names()
			if len(names) == 0 {
				fmt.Println("No calendar scrapers registered.")
				return nil
			}

			fmt.Println("Available calendar scrapers:")
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("\nTo use specific scrapers: sync --scrapers NAME,NAME")
			fmt.Println("To use all scrapers: sync")
			return nil
		},
	}
}

func setupLogging() {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
