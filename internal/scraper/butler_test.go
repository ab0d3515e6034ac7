package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"butlercal/internal/config"
)

func loadButlerFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/butler_events.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

func newButler(t *testing.T, cfg config.ScraperConfig) *ButlerMusic {
	t.Helper()
	s, err := NewButlerMusic(cfg)
	if err != nil {
		t.Fatalf("NewButlerMusic failed: %v", err)
	}
	return s.(*ButlerMusic)
}

func TestButlerParseEvents(t *testing.T) {
	s := newButler(t, config.ScraperConfig{CalendarID: "music@example.com"})

	events, err := s.parseEvents(bytes.NewReader(loadButlerFixture(t)), "https://music.utexas.edu/events")
	if err != nil {
		t.Fatalf("parseEvents failed: %v", err)
	}

	// Three rows carry an event link; the brochure row does not.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	t.Run("full event row", func(t *testing.T) {
		evt := events[0]
		if evt.Summary != "Faculty Recital: Jaime Garcia, percussion" {
			t.Errorf("Summary = %q", evt.Summary)
		}
		wantStart := time.Date(2026, 3, 10, 19, 30, 0, 0, time.FixedZone("", -5*3600))
		if !evt.Start.Equal(wantStart) {
			t.Errorf("Start = %v, want %v", evt.Start, wantStart)
		}
		wantEnd := wantStart.Add(90 * time.Minute)
		if !evt.End.Equal(wantEnd) {
			t.Errorf("End = %v, want %v", evt.End, wantEnd)
		}
		if evt.Location != "Bates Recital Hall" {
			t.Errorf("Location = %q", evt.Location)
		}
		if evt.URL != "https://music.utexas.edu/events/4923-faculty-recital-jaime-garcia" {
			t.Errorf("URL = %q", evt.URL)
		}
		wantDesc := "Free admission\nStream available at: https://stream.music.utexas.edu/live/4923"
		if evt.Description != wantDesc {
			t.Errorf("Description = %q, want %q", evt.Description, wantDesc)
		}
		if evt.CalendarID != "music@example.com" {
			t.Errorf("CalendarID = %q", evt.CalendarID)
		}
	})

	t.Run("single time tag defaults end to an hour later", func(t *testing.T) {
		evt := events[1]
		if evt.Summary != "Jazz Orchestra" {
			t.Errorf("Summary = %q", evt.Summary)
		}
		if got := evt.End.Sub(evt.Start); got != time.Hour {
			t.Errorf("event length = %v, want %v", got, time.Hour)
		}
	})

	t.Run("non-stream ticket button is not a stream link", func(t *testing.T) {
		evt := events[1]
		if evt.Description != "$10 – $15" {
			t.Errorf("Description = %q", evt.Description)
		}
	})

	t.Run("row without parseable time has zero start", func(t *testing.T) {
		evt := events[2]
		if !evt.Start.IsZero() {
			t.Errorf("Start = %v, want zero", evt.Start)
		}
	})
}

func TestButlerEvents(t *testing.T) {
	fixture := loadButlerFixture(t)

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("page") == "" {
			w.Write(fixture)
			return
		}
		// Later pages have no event rows.
		fmt.Fprint(w, "<html><body><div class='view-content'></div></body></html>")
	}))
	defer srv.Close()

	s := newButler(t, config.ScraperConfig{URL: srv.URL, CalendarID: "music@example.com"})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	events, err := s.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	// The undated row is dropped during normalization.
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if requests != 2 {
		t.Errorf("expected pagination to stop after the first empty page, got %d requests", requests)
	}

	t.Run("window filtering", func(t *testing.T) {
		past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		events, err := s.Events(context.Background(), past, past.AddDate(0, 1, 0))
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("expected 0 events outside the window, got %d", len(events))
		}
	})
}

func TestButlerEventsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newButler(t, config.ScraperConfig{URL: srv.URL})

	_, err := s.Events(context.Background(), time.Now(), time.Now().AddDate(0, 3, 0))
	if err == nil {
		t.Fatal("expected error for failing source")
	}
	if _, ok := err.(*ScrapeError); !ok {
		t.Errorf("expected *ScrapeError, got %T", err)
	}
}
