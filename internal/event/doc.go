// Package event defines the canonical event record shared by all scrapers and
// the reconciliation logic that diffs scraped events against remote calendar
// state.
//
// Every event gets a deterministic SHA1 fingerprint over its identity tuple
// (summary, start, end, calendar id), so the same underlying event scraped on
// different days matches the copy already present in the calendar and is never
// created twice.
package event
