package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"butlercal/internal/event"
	"butlercal/internal/gcal"
	"butlercal/internal/scraper"
)

// fakeScraper returns canned events or a canned error.
type fakeScraper struct {
	name   string
	events []*event.Event
	err    error
}

func (s *fakeScraper) Name() string { return s.name }

func (s *fakeScraper) Events(ctx context.Context, start, end time.Time) ([]*event.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	// Hand out copies so engine-side mutation doesn't leak between runs.
	out := make([]*event.Event, len(s.events))
	for i, evt := range s.events {
		c := *evt
		out[i] = &c
	}
	return out, nil
}

// fakeAPI is an in-memory calendar collaborator that records every call.
type fakeAPI struct {
	remote map[string][]*gcal.RemoteEvent
	nextID int

	createCalls int
	deleteCalls int

	failCreateSummaries map[string]bool
	failDeleteIDs       map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{remote: make(map[string][]*gcal.RemoteEvent)}
}

func (f *fakeAPI) ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]*gcal.RemoteEvent, error) {
	out := make([]*gcal.RemoteEvent, len(f.remote[calendarID]))
	copy(out, f.remote[calendarID])
	return out, nil
}

func (f *fakeAPI) CreateEvent(ctx context.Context, calendarID string, e *event.Event) (string, error) {
	f.createCalls++
	if f.failCreateSummaries[e.Summary] {
		return "", &gcal.APIError{Op: "create", CalendarID: calendarID, Err: errors.New("boom")}
	}

	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.remote[calendarID] = append(f.remote[calendarID], &gcal.RemoteEvent{
		ID:         id,
		CalendarID: calendarID,
		Summary:    e.Summary,
		Start:      e.Start,
		End:        e.End,
	})
	return id, nil
}

func (f *fakeAPI) DeleteEvent(ctx context.Context, calendarID, remoteID string) error {
	f.deleteCalls++
	if f.failDeleteIDs[remoteID] {
		return &gcal.APIError{Op: "delete", CalendarID: calendarID, Err: errors.New("boom")}
	}

	kept := f.remote[calendarID][:0]
	for _, r := range f.remote[calendarID] {
		if r.ID != remoteID {
			kept = append(kept, r)
		}
	}
	f.remote[calendarID] = kept
	return nil
}

// seed inserts a remote event mirroring a scraped event.
func (f *fakeAPI) seed(calendarID string, e *event.Event) *gcal.RemoteEvent {
	f.nextID++
	r := &gcal.RemoteEvent{
		ID:         fmt.Sprintf("remote-%d", f.nextID),
		CalendarID: calendarID,
		Summary:    e.Summary,
		Start:      e.Start,
		End:        e.End,
	}
	f.remote[calendarID] = append(f.remote[calendarID], r)
	return r
}

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newEngine(api CalendarAPI) *Engine {
	return &Engine{
		API:               api,
		DefaultCalendarID: "default@example.com",
		DaysBack:          7,
		DaysAhead:         90,
		now:               func() time.Time { return testNow },
	}
}

func testEvent(summary string, day, hour int) *event.Event {
	return &event.Event{
		Summary: summary,
		Start:   time.Date(2026, 1, day, hour, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 1, day, hour+1, 0, 0, 0, time.UTC),
	}
}

func TestRunCreatesMissingEvents(t *testing.T) {
	eventA := testEvent("Event A", 5, 10)
	eventB := testEvent("Event B", 6, 14)

	api := newFakeAPI()
	api.seed("default@example.com", eventA)

	engine := newEngine(api)
	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: []*event.Event{eventA, eventB}},
	})

	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if report.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", report.Deleted)
	}
	if len(report.ToCreate) != 1 || report.ToCreate[0].Summary != "Event B" {
		t.Errorf("ToCreate = %+v, want just Event B", report.ToCreate)
	}
	if len(api.remote["default@example.com"]) != 2 {
		t.Errorf("remote calendar has %d events, want 2", len(api.remote["default@example.com"]))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	scrapers := []scraper.Scraper{
		&fakeScraper{name: "one", events: []*event.Event{
			testEvent("Event A", 5, 10),
			testEvent("Event B", 6, 14),
		}},
	}

	api := newFakeAPI()
	engine := newEngine(api)

	first := engine.Run(context.Background(), scrapers)
	if first.Created != 2 {
		t.Fatalf("first run Created = %d, want 2", first.Created)
	}

	second := engine.Run(context.Background(), scrapers)
	if second.Created != 0 {
		t.Errorf("second run Created = %d, want 0", second.Created)
	}
	if second.Skipped != 2 {
		t.Errorf("second run Skipped = %d, want 2", second.Skipped)
	}
	if len(api.remote["default@example.com"]) != 2 {
		t.Errorf("remote calendar has %d events, want 2", len(api.remote["default@example.com"]))
	}
}

func TestRunDryRunNeverMutates(t *testing.T) {
	api := newFakeAPI()
	api.seed("default@example.com", testEvent("Stale", 3, 9))

	engine := newEngine(api)
	engine.DryRun = true
	engine.RemoveStale = true

	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: []*event.Event{testEvent("Fresh", 5, 10)}},
	})

	if api.createCalls != 0 || api.deleteCalls != 0 {
		t.Errorf("dry run touched the calendar: %d creates, %d deletes",
			api.createCalls, api.deleteCalls)
	}
	if report.Created != 0 || report.Deleted != 0 {
		t.Errorf("dry run reported mutations: created=%d deleted=%d",
			report.Created, report.Deleted)
	}
	if len(report.ToCreate) != 1 || len(report.ToDelete) != 1 {
		t.Errorf("computed sets: to_create=%d to_delete=%d, want 1 and 1",
			len(report.ToCreate), len(report.ToDelete))
	}
}

func TestRunRemoveStale(t *testing.T) {
	api := newFakeAPI()
	api.seed("default@example.com", testEvent("Gone A", 3, 9))
	api.seed("default@example.com", testEvent("Gone B", 4, 9))

	engine := newEngine(api)
	engine.RemoveStale = true

	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: nil},
	})

	if report.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", report.Deleted)
	}
	if len(api.remote["default@example.com"]) != 0 {
		t.Errorf("remote calendar has %d events, want 0", len(api.remote["default@example.com"]))
	}
}

func TestRunAddOnlyKeepsStale(t *testing.T) {
	api := newFakeAPI()
	api.seed("default@example.com", testEvent("Gone", 3, 9))

	engine := newEngine(api)

	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: nil},
	})

	if report.Deleted != 0 || api.deleteCalls != 0 {
		t.Errorf("add-only run deleted events: report=%d calls=%d",
			report.Deleted, api.deleteCalls)
	}
	if len(report.ToDelete) != 0 {
		t.Errorf("add-only run reported %d stale events", len(report.ToDelete))
	}
}

func TestRunIsolatesScraperFailures(t *testing.T) {
	api := newFakeAPI()
	engine := newEngine(api)

	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "broken", err: &scraper.ScrapeError{
			Scraper: "broken",
			Err:     errors.New("markup changed"),
		}},
		&fakeScraper{name: "working", events: []*event.Event{testEvent("Event A", 5, 10)}},
	})

	if report.Created != 1 {
		t.Errorf("Created = %d, want 1 from the working scraper", report.Created)
	}
	if len(report.ScraperErrors) != 1 {
		t.Fatalf("ScraperErrors = %d, want 1", len(report.ScraperErrors))
	}
	if report.ScraperErrors[0].Scraper != "broken" {
		t.Errorf("ScraperErrors[0].Scraper = %q", report.ScraperErrors[0].Scraper)
	}
}

func TestRunContinuesAfterItemFailure(t *testing.T) {
	api := newFakeAPI()
	api.failCreateSummaries = map[string]bool{"Event A": true}

	engine := newEngine(api)
	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: []*event.Event{
			testEvent("Event A", 5, 10),
			testEvent("Event B", 6, 14),
		}},
	})

	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
}

func TestRunRoutesByCalendarID(t *testing.T) {
	routed := testEvent("Kids Storytime", 5, 10)
	routed.CalendarID = "kids@example.com"

	api := newFakeAPI()
	engine := newEngine(api)

	report := engine.Run(context.Background(), []scraper.Scraper{
		&fakeScraper{name: "one", events: []*event.Event{
			routed,
			testEvent("Plain Event", 6, 14),
		}},
	})

	if report.Created != 2 {
		t.Fatalf("Created = %d, want 2", report.Created)
	}
	if len(api.remote["kids@example.com"]) != 1 {
		t.Errorf("kids calendar has %d events, want 1", len(api.remote["kids@example.com"]))
	}
	if len(api.remote["default@example.com"]) != 1 {
		t.Errorf("default calendar has %d events, want 1", len(api.remote["default@example.com"]))
	}
}

func TestDeleteAll(t *testing.T) {
	api := newFakeAPI()
	api.seed("default@example.com", testEvent("Event A", 5, 10))
	api.seed("default@example.com", testEvent("Event B", 6, 14))
	api.seed("other@example.com", testEvent("Elsewhere", 7, 9))

	engine := newEngine(api)
	report, err := engine.DeleteAll(context.Background(), "default@example.com")
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	if report.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", report.Deleted)
	}
	if len(api.remote["default@example.com"]) != 0 {
		t.Errorf("default calendar has %d events, want 0", len(api.remote["default@example.com"]))
	}
	if len(api.remote["other@example.com"]) != 1 {
		t.Errorf("other calendar was touched")
	}

	t.Run("counts per-item failures", func(t *testing.T) {
		api := newFakeAPI()
		r := api.seed("default@example.com", testEvent("Sticky", 5, 10))
		api.seed("default@example.com", testEvent("Fine", 6, 14))
		api.failDeleteIDs = map[string]bool{r.ID: true}

		engine := newEngine(api)
		report, err := engine.DeleteAll(context.Background(), "default@example.com")
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if report.Deleted != 1 || report.Failed != 1 {
			t.Errorf("Deleted = %d Failed = %d, want 1 and 1", report.Deleted, report.Failed)
		}
	})

	t.Run("dry run only reports", func(t *testing.T) {
		api := newFakeAPI()
		api.seed("default@example.com", testEvent("Event A", 5, 10))

		engine := newEngine(api)
		engine.DryRun = true
		report, err := engine.DeleteAll(context.Background(), "default@example.com")
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if api.deleteCalls != 0 {
			t.Errorf("dry run issued %d delete calls", api.deleteCalls)
		}
		if len(report.ToDelete) != 1 {
			t.Errorf("ToDelete = %d, want 1", len(report.ToDelete))
		}
	})
}
