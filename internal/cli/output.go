package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"butlercal/internal/sync"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteReport writes the sync report in the specified format
func WriteReport(w io.Writer, report *sync.Report, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, report *sync.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func writeText(w io.Writer, report *sync.Report) error {
	if report.DryRun {
		fmt.Fprintf(w, "Dry run: would add %d events, remove %d events (%d already present)\n",
			len(report.ToCreate), len(report.ToDelete), report.Skipped)

		for _, evt := range report.ToCreate {
			fmt.Fprintf(w, "  ADD: %s at %s\n", evt.Summary, evt.Start.Format("2006-01-02 15:04"))
		}
		for _, r := range report.ToDelete {
			fmt.Fprintf(w, "  REMOVE: %s at %s\n", r.Summary, r.Start.Format("2006-01-02 15:04"))
		}
	} else {
		fmt.Fprintf(w, "Calendar sync complete: %d events added, %d events removed, %d skipped\n",
			report.Created, report.Deleted, report.Skipped)
	}

	if report.Failed > 0 {
		fmt.Fprintf(w, "Failures: %d calendar operations failed (see log)\n", report.Failed)
	}

	for _, se := range report.ScraperErrors {
		fmt.Fprintf(w, "Scraper error (%s): %s\n", se.Scraper, se.Error)
	}

	return nil
}
