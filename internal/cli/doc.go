// Package cli implements the command-line interface for butlercal.
//
// It provides the Cobra-based commands: sync (scrape and reconcile), delete-all
// (clear a calendar), and list-scrapers, plus text/JSON report formatting. It
// coordinates the config, scraper, gcal, and sync packages; setup failures
// (bad config, missing credentials, unknown scraper) exit non-zero, while
// per-item failures during a run are logged and still exit zero.
package cli
