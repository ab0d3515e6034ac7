package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"butlercal/internal/config"
	"butlercal/internal/event"
	"butlercal/internal/logger"
)

// PflugervilleLibraryName is the registry name of the Pflugerville Library
// scraper.
const PflugervilleLibraryName = "pflugerville-library"

const (
	pflugervilleAPIURL   = "https://content.civicplus.com/api/content/tx-pflugerville/event"
	pflugervilleTokenURL = "https://www.pflugervilletx.gov/372/Library-Event-Calendar"
	pflugervilleEventURL = "https://tx-pflugerville.civicplus.com/calendar.aspx?EID=%s"
	pflugervillePageSize = 50
	pflugervilleTimeout  = 30 * time.Second

	// The CivicPlus page only serves the token to browser user agents.
	pflugervilleUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
)

var (
	tokenPattern        = regexp.MustCompile(`window\.hcmsClientToken\s*=\s*"(Bearer [^"]+)"`)
	tokenPatternBroader = regexp.MustCompile(`"(Bearer [a-zA-Z0-9._\-+/=]+)"`)
)

// pflugervilleTZ: the API returns UTC timestamps; events are presented in the
// library's local time.
var pflugervilleTZ = mustLoadLocation("America/Chicago")

// PflugervilleLibrary scrapes library events from the Pflugerville CivicPlus
// content API. The API paginates with $top/$skip and supports date filtering
// server-side; requests carry a bearer token scraped from the public calendar
// page's HTML.
type PflugervilleLibrary struct {
	client   *http.Client
	cfg      config.ScraperConfig
	baseURL  string
	tokenURL string
	pageSize int
	token    string // fetched lazily on first use
}

// NewPflugervilleLibrary creates a configured Pflugerville Library scraper.
// The token fetch is deferred until the first Events call so that
// construction never touches the network.
func NewPflugervilleLibrary(cfg config.ScraperConfig) (Scraper, error) {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = pflugervilleAPIURL
	}

	return &PflugervilleLibrary{
		client: &http.Client{
			Timeout: pflugervilleTimeout,
		},
		cfg:      cfg,
		baseURL:  baseURL,
		tokenURL: pflugervilleTokenURL,
		pageSize: pflugervillePageSize,
	}, nil
}

// Name returns the registry name.
func (s *PflugervilleLibrary) Name() string { return PflugervilleLibraryName }

// Events fetches events in [start, end] from the content API, paging until
// the API's reported total is reached.
func (s *PflugervilleLibrary) Events(ctx context.Context, start, end time.Time) ([]*event.Event, error) {
	if s.token == "" {
		token, err := s.fetchToken(ctx)
		if err != nil {
			return nil, &ScrapeError{Scraper: PflugervilleLibraryName, Err: err}
		}
		s.token = token
	}

	all := make([]*event.Event, 0)
	skip := 0
	total := -1

	for {
		items, pageTotal, err := s.fetchPage(ctx, skip, start, end)
		if err != nil {
			return nil, &ScrapeError{Scraper: PflugervilleLibraryName, Err: err}
		}
		if total < 0 {
			total = pageTotal
		}

		for _, item := range items {
			evt := s.normalizeItem(item)
			if err := event.Normalize(evt, pflugervilleTZ); err != nil {
				logger.Warn("Dropping invalid event", logger.Fields{
					"scraper": PflugervilleLibraryName,
					"reason":  err.Error(),
				})
				continue
			}
			all = append(all, evt)
		}

		skip += len(items)
		if len(items) < s.pageSize || (total >= 0 && skip >= total) {
			break
		}
	}

	return all, nil
}

// fetchToken scrapes the hcmsClientToken from the calendar page HTML.
func (s *PflugervilleLibrary) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("User-Agent", pflugervilleUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching token page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token page: %w", err)
	}

	if m := tokenPattern.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	if m := tokenPatternBroader.FindSubmatch(body); m != nil {
		logger.Debug("Found token with broader pattern", nil)
		return string(m[1]), nil
	}

	return "", fmt.Errorf("hcmsClientToken not found in page HTML")
}

// pflugervilleItem mirrors the subset of the CivicPlus event payload the
// scraper reads. Text fields are keyed by language code.
type pflugervilleItem struct {
	ID   string `json:"id"`
	Data struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
		Location    map[string]string `json:"location"`
		EventDate   struct {
			IV struct {
				StartDate string `json:"startDate"`
				EndDate   string `json:"endDate"`
			} `json:"iv"`
		} `json:"eventdate"`
	} `json:"data"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

type pflugervilleResponse struct {
	Total int                `json:"total"`
	Items []pflugervilleItem `json:"items"`
}

// fetchPage retrieves one page of events from the content API.
func (s *PflugervilleLibrary) fetchPage(ctx context.Context, skip int, start, end time.Time) ([]pflugervilleItem, int, error) {
	params := url.Values{}
	params.Set("$top", fmt.Sprint(s.pageSize))
	params.Set("$skip", fmt.Sprint(skip))
	params.Set("$filter", fmt.Sprintf(
		"data/eventdate/iv/startDate ge '%s' and data/eventdate/iv/startDate le '%s'",
		start.UTC().Format("2006-01-02T15:04:05Z"),
		end.UTC().Format("2006-01-02T15:04:05Z"),
	))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var parsed pflugervilleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", err)
	}

	return parsed.Items, parsed.Total, nil
}

// normalizeItem maps a CivicPlus payload item onto the canonical event shape.
// The target calendar follows the routing rule: category map first, then the
// scraper's default calendar id, else unset.
func (s *PflugervilleLibrary) normalizeItem(item pflugervilleItem) *event.Event {
	evt := &event.Event{
		Summary:     item.Data.Title["en"],
		Description: item.Data.Description["en"],
		Location:    item.Data.Location["en"],
		Source:      PflugervilleLibraryName,
	}

	if item.ID != "" {
		evt.URL = fmt.Sprintf(pflugervilleEventURL, item.ID)
	}

	if t, err := parseISOTime(item.Data.EventDate.IV.StartDate); err == nil {
		evt.Start = t.UTC().In(pflugervilleTZ)
	}
	if t, err := parseISOTime(item.Data.EventDate.IV.EndDate); err == nil {
		evt.End = t.UTC().In(pflugervilleTZ)
	}

	categories := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		if c.Name != "" {
			categories = append(categories, c.Name)
		}
	}
	if len(categories) > 0 {
		evt.Category = categories[0]
	}
	evt.CalendarID = resolveCalendarID(s.cfg, categories)

	return evt
}
