package event

import "sort"

// Remote is the minimal view of a previously-created calendar event that the
// diff needs: its remote id plus the identity fields. The gcal package adapts
// the calendar service's representation onto this.
type Remote interface {
	RemoteID() string
	Fingerprint() string
}

// DiffResult holds the reconciliation sets for one calendar.
type DiffResult struct {
	ToCreate []*Event // scraped events with no matching remote event
	ToDelete []Remote // remote events with no matching scraped event
}

// Diff compares freshly scraped events against the remote snapshot for a
// single calendar. Matching is exact fingerprint equality on
// (summary, start, end, calendar id); no fuzzy matching. ToDelete is always
// computed — callers that run add-only simply ignore it.
func Diff(scraped []*Event, remote []Remote) *DiffResult {
	result := &DiffResult{
		ToCreate: make([]*Event, 0),
		ToDelete: make([]Remote, 0),
	}

	remoteSet := make(map[string]bool, len(remote))
	for _, r := range remote {
		remoteSet[r.Fingerprint()] = true
	}

	scrapedSet := make(map[string]bool, len(scraped))
	for _, evt := range scraped {
		fp := evt.Fingerprint()
		if scrapedSet[fp] {
			continue // duplicate within the scrape itself
		}
		scrapedSet[fp] = true

		if !remoteSet[fp] {
			result.ToCreate = append(result.ToCreate, evt)
		}
	}

	for _, r := range remote {
		if !scrapedSet[r.Fingerprint()] {
			result.ToDelete = append(result.ToDelete, r)
		}
	}

	// Sort for consistent output
	sort.Slice(result.ToCreate, func(i, j int) bool {
		if !result.ToCreate[i].Start.Equal(result.ToCreate[j].Start) {
			return result.ToCreate[i].Start.Before(result.ToCreate[j].Start)
		}
		return result.ToCreate[i].Summary < result.ToCreate[j].Summary
	})
	sort.Slice(result.ToDelete, func(i, j int) bool {
		return result.ToDelete[i].RemoteID() < result.ToDelete[j].RemoteID()
	})

	return result
}
