package event

import (
	"fmt"
	"strings"
	"time"
)

// InvalidEventError reports a record that failed a normalization invariant.
// Callers drop the record with a warning rather than aborting the run.
type InvalidEventError struct {
	Summary string
	Reason  string
}

func (e *InvalidEventError) Error() string {
	if e.Summary == "" {
		return fmt.Sprintf("invalid event: %s", e.Reason)
	}
	return fmt.Sprintf("invalid event %q: %s", e.Summary, e.Reason)
}

// Normalize canonicalizes an event in place and validates its invariants:
// non-empty summary, non-zero start and end, and end not before start.
// Text fields have surrounding whitespace stripped and internal runs of
// whitespace collapsed. Zone-less timestamps are interpreted in loc, which
// should be the source's stated locale.
//
// Normalize is idempotent: normalizing an already-normalized event changes
// nothing.
func Normalize(e *Event, loc *time.Location) error {
	e.Summary = collapseWhitespace(e.Summary)
	e.Description = strings.TrimSpace(e.Description)
	e.Location = collapseWhitespace(e.Location)
	e.URL = strings.TrimSpace(e.URL)
	e.Category = collapseWhitespace(e.Category)

	if e.Summary == "" {
		return &InvalidEventError{Reason: "empty summary"}
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return &InvalidEventError{Summary: e.Summary, Reason: "missing start or end time"}
	}

	if loc != nil {
		e.Start = localize(e.Start, loc)
		e.End = localize(e.End, loc)
	}

	if e.End.Before(e.Start) {
		return &InvalidEventError{Summary: e.Summary, Reason: "end before start"}
	}

	return nil
}

// localize reinterprets a timestamp parsed without zone info (which Go reads
// as UTC) in the source's location. Timestamps that already carry an offset
// are left alone.
func localize(t time.Time, loc *time.Location) time.Time {
	if t.Location() != time.UTC {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// collapseWhitespace trims a string and collapses internal whitespace runs to
// single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
