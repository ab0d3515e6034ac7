package gcal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"butlercal/internal/event"
	"butlercal/internal/logger"
)

// Environment variables for service-account credentials. SA_CREDENTIALS holds
// the JSON inline; SA_CREDENTIALS_PATH points at a key file. Inline wins when
// both are set.
const (
	EnvCredentials     = "SA_CREDENTIALS"
	EnvCredentialsPath = "SA_CREDENTIALS_PATH"
)

// CredentialError is a fatal failure to load or parse service-account
// credentials; the run aborts before any calendar call.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("loading service account credentials: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// APIError wraps a single failed calendar call. The sync engine logs it,
// counts the item as failed, and continues with the rest of the batch.
type APIError struct {
	Op         string
	CalendarID string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar %s (%s): %v", e.Op, e.CalendarID, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// RemoteEvent is the calendar service's own representation of a
// previously-created event. It is only read during sync; mutation happens
// through the client's create/delete calls.
type RemoteEvent struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// RemoteID returns the service-assigned event id.
func (r *RemoteEvent) RemoteID() string { return r.ID }

// Fingerprint returns the same identity hash scraped events use, so the two
// sides diff against each other directly.
func (r *RemoteEvent) Fingerprint() string {
	return event.Fingerprint(r.Summary, r.Start, r.End, r.CalendarID)
}

// Client talks to the Google Calendar API on behalf of a service account.
type Client struct {
	service *calendar.Service
}

// NewClient builds an authenticated calendar client from the SA_CREDENTIALS /
// SA_CREDENTIALS_PATH environment variables.
func NewClient(ctx context.Context) (*Client, error) {
	data, err := credentialsJSON()
	if err != nil {
		return nil, &CredentialError{Err: err}
	}

	conf, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, &CredentialError{Err: err}
	}

	service, err := calendar.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, &CredentialError{Err: err}
	}

	return &Client{service: service}, nil
}

// credentialsJSON resolves the service-account key, preferring the inline
// variable over the path.
func credentialsJSON() ([]byte, error) {
	if inline := os.Getenv(EnvCredentials); inline != "" {
		return []byte(inline), nil
	}
	if path := os.Getenv(EnvCredentialsPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("neither %s nor %s is set", EnvCredentials, EnvCredentialsPath)
}

// ListEvents returns the calendar's events in [start, end]. Zero start or end
// leaves that bound open. Recurring events are expanded to single instances;
// all-day events (no concrete dateTime) are skipped.
func (c *Client) ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]*RemoteEvent, error) {
	remote := make([]*RemoteEvent, 0)
	pageToken := ""

	for {
		call := c.service.Events.List(calendarID).
			Context(ctx).
			ShowDeleted(false).
			SingleEvents(true).
			MaxResults(2500)
		if !start.IsZero() {
			call = call.TimeMin(start.Format(time.RFC3339))
		}
		if !end.IsZero() {
			call = call.TimeMax(end.Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var result *calendar.Events
		err := withRetry(ctx, func() error {
			var callErr error
			result, callErr = call.Do()
			return callErr
		})
		if err != nil {
			return nil, &APIError{Op: "list", CalendarID: calendarID, Err: err}
		}

		for _, item := range result.Items {
			evt, ok := toRemoteEvent(item, calendarID)
			if !ok {
				continue
			}
			remote = append(remote, evt)
		}

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return remote, nil
}

// toRemoteEvent converts a calendar API item. Returns false for items without
// a concrete start/end dateTime.
func toRemoteEvent(item *calendar.Event, calendarID string) (*RemoteEvent, bool) {
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return nil, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return nil, false
	}

	return &RemoteEvent{
		ID:          item.Id,
		CalendarID:  calendarID,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       start,
		End:         end,
	}, true
}

// CreateEvent inserts a scraped event into the calendar and returns the
// remote id. The event URL, when present, is appended to the description.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, e *event.Event) (string, error) {
	description := e.Description
	if e.URL != "" {
		description = strings.TrimSpace(description + "\n" + e.URL)
	}

	body := &calendar.Event{
		Summary:     e.Summary,
		Description: description,
		Location:    e.Location,
		Start: &calendar.EventDateTime{
			DateTime: e.Start.Format(time.RFC3339),
			TimeZone: zoneName(e.Start),
		},
		End: &calendar.EventDateTime{
			DateTime: e.End.Format(time.RFC3339),
			TimeZone: zoneName(e.End),
		},
	}

	var created *calendar.Event
	err := withRetry(ctx, func() error {
		var callErr error
		created, callErr = c.service.Events.Insert(calendarID, body).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", &APIError{Op: "create", CalendarID: calendarID, Err: err}
	}

	logger.Debug("Created event", logger.Fields{
		"summary":     e.Summary,
		"calendar_id": calendarID,
		"remote_id":   created.Id,
	})
	return created.Id, nil
}

// DeleteEvent removes a remote event by id.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, remoteID string) error {
	err := withRetry(ctx, func() error {
		return c.service.Events.Delete(calendarID, remoteID).Context(ctx).Do()
	})
	if err != nil {
		return &APIError{Op: "delete", CalendarID: calendarID, Err: err}
	}
	return nil
}

// zoneName returns the IANA zone label for an event time, or "" when the time
// carries only a fixed offset (the dateTime offset then stands on its own).
func zoneName(t time.Time) string {
	name := t.Location().String()
	if strings.Contains(name, "/") {
		return name
	}
	return ""
}
