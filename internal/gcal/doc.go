// Package gcal implements the Google Calendar collaborator: listing a
// calendar's events for the sync snapshot, creating missing events, and
// deleting stale ones.
//
// Authentication uses a service account key supplied through the
// SA_CREDENTIALS or SA_CREDENTIALS_PATH environment variables. Every API call
// is retried with exponential backoff on rate limiting, server errors, and
// transport failures.
package gcal
