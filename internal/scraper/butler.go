package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"butlercal/internal/config"
	"butlercal/internal/event"
	"butlercal/internal/logger"
)

// ButlerMusicName is the registry name of the Butler School of Music scraper.
const ButlerMusicName = "butler-music"

const (
	butlerEventsURL    = "https://music.utexas.edu/events"
	butlerUserAgent    = "butlercal/1.0"
	butlerTimeout      = 30 * time.Second
	butlerMaxPages     = 10
	butlerDefaultEvent = time.Hour // end time when the source lists only a start
)

// butlerTZ is the source's stated locale. Event times without explicit zone
// info are interpreted here.
var butlerTZ = mustLoadLocation("America/Chicago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading location %s: %v", name, err))
	}
	return loc
}

// ButlerMusic scrapes concert listings from the UT Butler School of Music
// events pages. The source paginates with a ?page=N query parameter and does
// not support date filtering, so the scraper walks pages and filters locally.
type ButlerMusic struct {
	client   *http.Client
	cfg      config.ScraperConfig
	url      string
	maxPages int
}

// NewButlerMusic creates a configured Butler School of Music scraper.
func NewButlerMusic(cfg config.ScraperConfig) (Scraper, error) {
	srcURL := cfg.URL
	if srcURL == "" {
		srcURL = butlerEventsURL
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = butlerMaxPages
	}

	return &ButlerMusic{
		client: &http.Client{
			Timeout: butlerTimeout,
		},
		cfg:      cfg,
		url:      srcURL,
		maxPages: maxPages,
	}, nil
}

// Name returns the registry name.
func (s *ButlerMusic) Name() string { return ButlerMusicName }

// Events fetches all listed events and returns the ones overlapping
// [start, end], normalized into canonical records.
func (s *ButlerMusic) Events(ctx context.Context, start, end time.Time) ([]*event.Event, error) {
	all := make([]*event.Event, 0)

	for page := 0; page < s.maxPages; page++ {
		pageURL := s.url
		if page > 0 {
			pageURL = fmt.Sprintf("%s?page=%d", s.url, page)
		}

		events, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, &ScrapeError{Scraper: ButlerMusicName, Err: err}
		}
		if len(events) == 0 {
			break // past the last page
		}

		all = append(all, events...)
	}

	kept := make([]*event.Event, 0, len(all))
	for _, evt := range all {
		if err := event.Normalize(evt, butlerTZ); err != nil {
			logger.Warn("Dropping invalid event", logger.Fields{
				"scraper": ButlerMusicName,
				"reason":  err.Error(),
			})
			continue
		}
		if evt.Overlaps(start, end) {
			kept = append(kept, evt)
		}
	}

	return kept, nil
}

// fetchPage retrieves and parses one listing page.
func (s *ButlerMusic) fetchPage(ctx context.Context, pageURL string) ([]*event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", butlerUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return s.parseEvents(resp.Body, pageURL)
}

// parseEvents extracts events from a listing page's HTML.
func (s *ButlerMusic) parseEvents(r io.Reader, pageURL string) ([]*event.Event, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	events := make([]*event.Event, 0)

	doc.Find("div.views-row").Each(func(i int, row *goquery.Selection) {
		link := row.Find("h2.field-content a[href^='/events/']").First()
		if link.Length() == 0 {
			return
		}

		evt := &event.Event{
			Summary: strings.TrimSpace(link.Text()),
			Source:  ButlerMusicName,
		}

		if href, ok := link.Attr("href"); ok {
			evt.URL = resolveHref(pageURL, href)
		}

		evt.Start, evt.End = parseButlerTimes(row)
		evt.Location = strings.TrimSpace(
			row.Find("div.views-field-field-cofaevent-location-name a").First().Text())
		if evt.Location == "" {
			evt.Location = strings.TrimSpace(
				row.Find("div.views-field-field-cofaevent-location-name").Text())
		}
		evt.Description = buildButlerDescription(row)
		evt.CalendarID = resolveCalendarID(s.cfg, nil)

		events = append(events, evt)
	})

	return events, nil
}

// parseButlerTimes reads the <time datetime> tags inside an event row. Two
// tags give start and end; a single tag gives the start, with the end defaulted
// an hour later.
func parseButlerTimes(row *goquery.Selection) (start, end time.Time) {
	tags := row.Find("div.views-field-field-cofaevent-datetime time")

	tags.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		attr, ok := sel.Attr("datetime")
		if !ok {
			return true
		}
		t, err := parseISOTime(attr)
		if err != nil {
			return true
		}
		switch i {
		case 0:
			start = t
		case 1:
			end = t
			return false
		}
		return true
	})

	if !start.IsZero() && end.IsZero() {
		end = start.Add(butlerDefaultEvent)
	}
	return start, end
}

// buildButlerDescription assembles the description from the admission range
// and, when the event is streamable, the stream link.
func buildButlerDescription(row *goquery.Selection) string {
	parts := make([]string, 0, 2)

	admission := strings.TrimSpace(
		row.Find("div.views-field-field-cofaevent-admission-range").Text())
	if admission != "" {
		parts = append(parts, admission)
	}

	ticket := row.Find("div.views-field-field-cofaevent-ticket-button a").First()
	if ticket.Length() > 0 && strings.Contains(strings.ToLower(ticket.Text()), "stream") {
		if href, ok := ticket.Attr("href"); ok && href != "" {
			parts = append(parts, fmt.Sprintf("Stream available at: %s", href))
		}
	}

	return strings.Join(parts, "\n")
}

// parseISOTime parses an ISO 8601 timestamp, with or without zone info.
func parseISOTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// resolveHref makes a possibly-relative link absolute against the page URL.
func resolveHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
