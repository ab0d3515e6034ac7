package scraper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"butlercal/internal/config"
	"butlercal/internal/event"
)

// Scraper is the capability contract every event source implements. Each
// implementation owns its own HTTP fetching and markup parsing.
type Scraper interface {
	// Name returns the registry name of this scraper.
	Name() string

	// Events fetches events overlapping [start, end]. Sources that can't
	// filter server-side fetch everything and filter locally. Missing
	// expected structure in the source surfaces as a *ScrapeError rather
	// than a crash, so one broken source doesn't block others.
	Events(ctx context.Context, start, end time.Time) ([]*event.Event, error)
}

// Factory constructs a configured scraper instance.
type Factory func(cfg config.ScraperConfig) (Scraper, error)

// DuplicateNameError reports a registration under an already-taken name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("scraper %s already registered", e.Name)
}

// UnknownScraperError reports a lookup of a name nothing registered.
type UnknownScraperError struct {
	Name string
}

func (e *UnknownScraperError) Error() string {
	return fmt.Sprintf("scraper %s not found", e.Name)
}

// ScrapeError wraps a per-source failure. The sync engine logs it, skips the
// source, and continues with the remaining scrapers.
type ScrapeError struct {
	Scraper string
	Err     error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scraper %s: %v", e.Scraper, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register associates a name with a scraper factory. Registration happens in
// an explicit init step at process start, not as an import side effect.
func Register(name string, f Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		return &DuplicateNameError{Name: name}
	}

	registry[name] = f
	return nil
}

// New constructs a scraper instance by registry name.
func New(name string, cfg config.ScraperConfig) (Scraper, error) {
	mu.RLock()
	factory, exists := registry[name]
	mu.RUnlock()

	if !exists {
		return nil, &UnknownScraperError{Name: name}
	}

	return factory(cfg)
}

// Names returns all registered scraper names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins populates the registry with the built-in scrapers. Called
// once from the CLI before any command runs.
func RegisterBuiltins() error {
	builtins := map[string]Factory{
		ButlerMusicName:         NewButlerMusic,
		PflugervilleLibraryName: NewPflugervilleLibrary,
	}

	for name, factory := range builtins {
		if err := Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// resolveCalendarID applies the routing rule shared by all scrapers:
// category-specific mapping first, then the scraper's default calendar, else
// empty (delegated to the global default).
func resolveCalendarID(cfg config.ScraperConfig, categories []string) string {
	for _, category := range categories {
		if id, ok := cfg.CategoryCalendarIDMap[category]; ok {
			return id
		}
	}
	return cfg.CalendarID
}
