package event

import (
	"crypto/sha1"
	"fmt"
	"time"
)

// Event is the canonical record every scraper produces. Scrapers map their
// source-specific fields onto this shape before anything else sees them.
type Event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Category    string    `json:"category,omitempty"`
	CalendarID  string    `json:"calendar_id,omitempty"` // empty means the global default
	Source      string    `json:"source,omitempty"`      // scraper name, diagnostics only
}

// Fingerprint returns a deterministic identity for diffing against the remote
// calendar. Two scrapes of the same underlying event hash identically no matter
// when they ran: only summary, start, end, and target calendar participate, and
// times are canonicalized to UTC first.
func Fingerprint(summary string, start, end time.Time, calendarID string) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s",
		summary,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		calendarID,
	)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fingerprint returns the event's identity hash.
func (e *Event) Fingerprint() string {
	return Fingerprint(e.Summary, e.Start, e.End, e.CalendarID)
}

// Overlaps reports whether the event overlaps the [start, end] window.
// Used by scrapers whose source doesn't support server-side date filtering.
func (e *Event) Overlaps(start, end time.Time) bool {
	return !e.End.Before(start) && !e.Start.After(end)
}
