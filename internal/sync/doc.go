// Package sync holds the reconciliation engine: it runs the configured
// scrapers, snapshots the remote calendar state in the same window, diffs the
// two sets by event fingerprint, and applies the resulting creates and
// deletes through the calendar collaborator.
//
// Failure semantics follow a degrade-gracefully rule: a broken scraper or a
// failed calendar call is logged and counted, and the rest of the run
// proceeds. Only setup problems (config, credentials) abort a run.
package sync
