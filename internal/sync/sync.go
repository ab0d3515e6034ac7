package sync

import (
	"context"
	"sort"
	"time"

	"butlercal/internal/event"
	"butlercal/internal/gcal"
	"butlercal/internal/logger"
	"butlercal/internal/scraper"
)

// CalendarAPI is the calendar collaborator contract the engine reconciles
// against. gcal.Client implements it; tests substitute an in-memory fake.
type CalendarAPI interface {
	ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]*gcal.RemoteEvent, error)
	CreateEvent(ctx context.Context, calendarID string, e *event.Event) (string, error)
	DeleteEvent(ctx context.Context, calendarID, remoteID string) error
}

// ScraperError records a source that failed during the fetch phase. The run
// continues without it.
type ScraperError struct {
	Scraper string `json:"scraper"`
	Error   string `json:"error"`
}

// Report summarizes one sync run. ToCreate and ToDelete are the computed
// reconciliation sets; Created and Deleted count the mutations actually
// applied (always zero under dry-run).
type Report struct {
	DryRun        bool                `json:"dry_run,omitempty"`
	Created       int                 `json:"created"`
	Deleted       int                 `json:"deleted"`
	Skipped       int                 `json:"skipped"`
	Failed        int                 `json:"failed"`
	ToCreate      []*event.Event      `json:"to_create,omitempty"`
	ToDelete      []*gcal.RemoteEvent `json:"to_delete,omitempty"`
	ScraperErrors []ScraperError      `json:"scraper_errors,omitempty"`
}

// Engine runs the scrape-and-reconcile cycle: fetch, remote snapshot, diff,
// apply. One run is terminal; re-running with unchanged source data is a
// no-op because fingerprint matching prevents duplicate creates.
type Engine struct {
	API               CalendarAPI
	DefaultCalendarID string
	DaysBack          int
	DaysAhead         int
	DryRun            bool
	RemoveStale       bool // also delete remote events missing from the scrape

	// now is a test seam; nil means time.Now.
	now func() time.Time
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// Run executes one sync cycle over the given scrapers. Per-scraper and
// per-item failures are logged and counted, never fatal; the returned report
// carries everything the caller needs for the summary and the exit decision.
func (e *Engine) Run(ctx context.Context, scrapers []scraper.Scraper) *Report {
	report := &Report{DryRun: e.DryRun}

	now := e.clock()
	start := now.AddDate(0, 0, -e.DaysBack)
	end := now.AddDate(0, 0, e.DaysAhead)

	byCalendar := e.fetch(ctx, scrapers, start, end, report)

	for _, calendarID := range e.calendars(byCalendar) {
		e.reconcile(ctx, calendarID, byCalendar[calendarID], start, end, report)
	}

	logger.AddCounter("sync.created", int64(report.Created))
	logger.AddCounter("sync.deleted", int64(report.Deleted))
	logger.AddCounter("sync.skipped", int64(report.Skipped))
	logger.AddCounter("sync.failed", int64(report.Failed))

	return report
}

// fetch runs every scraper and groups the results by resolved calendar id.
// A failing scraper is isolated: logged, recorded in the report, skipped.
func (e *Engine) fetch(ctx context.Context, scrapers []scraper.Scraper, start, end time.Time, report *Report) map[string][]*event.Event {
	byCalendar := make(map[string][]*event.Event)

	for _, s := range scrapers {
		logger.Info("Scraping events", logger.Fields{"scraper": s.Name()})

		events, err := s.Events(ctx, start, end)
		if err != nil {
			logger.Error("Scraper failed, skipping source", logger.Fields{
				"scraper": s.Name(),
			}, err)
			report.ScraperErrors = append(report.ScraperErrors, ScraperError{
				Scraper: s.Name(),
				Error:   err.Error(),
			})
			continue
		}

		logger.Info("Scraped events", logger.Fields{
			"scraper": s.Name(),
			"count":   len(events),
		})

		for _, evt := range events {
			calendarID := evt.CalendarID
			if calendarID == "" {
				calendarID = e.DefaultCalendarID
				evt.CalendarID = calendarID
			}
			byCalendar[calendarID] = append(byCalendar[calendarID], evt)
		}
	}

	return byCalendar
}

// calendars returns the sorted set of calendars this run manages: every
// calendar that received scraped events, plus the default calendar so that
// stale events there are still noticed when a scrape comes back empty.
func (e *Engine) calendars(byCalendar map[string][]*event.Event) []string {
	set := make(map[string]bool, len(byCalendar)+1)
	for id := range byCalendar {
		set[id] = true
	}
	if e.DefaultCalendarID != "" {
		set[e.DefaultCalendarID] = true
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reconcile diffs one calendar's scraped events against its remote snapshot
// and applies the result.
func (e *Engine) reconcile(ctx context.Context, calendarID string, scraped []*event.Event, start, end time.Time, report *Report) {
	remote, err := e.API.ListEvents(ctx, calendarID, start, end)
	if err != nil {
		logger.Error("Listing remote events failed, skipping calendar", logger.Fields{
			"calendar_id": calendarID,
		}, err)
		report.Failed++
		return
	}

	logger.Info("Fetched existing calendar events", logger.Fields{
		"calendar_id": calendarID,
		"count":       len(remote),
	})

	remotes := make([]event.Remote, len(remote))
	for i, r := range remote {
		remotes[i] = r
	}
	diff := event.Diff(scraped, remotes)

	report.Skipped += len(scraped) - len(diff.ToCreate)
	report.ToCreate = append(report.ToCreate, diff.ToCreate...)
	if e.RemoveStale {
		for _, r := range diff.ToDelete {
			report.ToDelete = append(report.ToDelete, r.(*gcal.RemoteEvent))
		}
	}

	if e.DryRun {
		logger.Info("Dry run, not applying changes", logger.Fields{
			"calendar_id":  calendarID,
			"would_create": len(diff.ToCreate),
			"would_delete": len(diff.ToDelete),
		})
		return
	}

	for _, evt := range diff.ToCreate {
		if _, err := e.API.CreateEvent(ctx, calendarID, evt); err != nil {
			logger.Error("Creating event failed", logger.Fields{
				"calendar_id": calendarID,
				"summary":     evt.Summary,
			}, err)
			report.Failed++
			continue
		}
		report.Created++
	}

	if !e.RemoveStale {
		return
	}

	for _, r := range diff.ToDelete {
		if err := e.API.DeleteEvent(ctx, calendarID, r.RemoteID()); err != nil {
			logger.Error("Deleting event failed", logger.Fields{
				"calendar_id": calendarID,
				"remote_id":   r.RemoteID(),
			}, err)
			report.Failed++
			continue
		}
		report.Deleted++
	}
}

// DeleteAll unconditionally removes every event from the calendar, ignoring
// scrapers and diffing entirely. Per-item failures are counted, not fatal.
func (e *Engine) DeleteAll(ctx context.Context, calendarID string) (*Report, error) {
	report := &Report{DryRun: e.DryRun}

	remote, err := e.API.ListEvents(ctx, calendarID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	report.ToDelete = remote
	if e.DryRun {
		logger.Info("Dry run, not deleting events", logger.Fields{
			"calendar_id":  calendarID,
			"would_delete": len(remote),
		})
		return report, nil
	}

	for _, r := range remote {
		if err := e.API.DeleteEvent(ctx, calendarID, r.ID); err != nil {
			logger.Error("Deleting event failed", logger.Fields{
				"calendar_id": calendarID,
				"remote_id":   r.ID,
			}, err)
			report.Failed++
			continue
		}
		report.Deleted++
	}

	return report, nil
}
