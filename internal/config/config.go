// Package config loads the YAML scraper configuration and resolves
// environment defaults.
//
// The file's top-level keys are scraper names; each value holds that
// scraper's constructor parameters:
//
//	pflugerville-library:
//	  calendar_id: library@group.calendar.google.com
//	  category_calendar_id_map:
//	    Library Kids: kids@group.calendar.google.com
//	butler-music:
//	  calendar_id: music@group.calendar.google.com
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvCalendarID is the environment variable holding the global default
// calendar id, used when neither the event's category nor its scraper
// resolves one.
const EnvCalendarID = "CALENDAR_ID"

// ScraperConfig holds the constructor parameters for one scraper.
type ScraperConfig struct {
	// CalendarID is the scraper's default target calendar.
	CalendarID string `yaml:"calendar_id"`

	// CategoryCalendarIDMap routes events whose category matches a key to
	// that calendar instead of CalendarID.
	CategoryCalendarIDMap map[string]string `yaml:"category_calendar_id_map"`

	// URL overrides the scraper's default source URL. Mostly for tests.
	URL string `yaml:"url"`

	// MaxPages bounds pagination for sources scraped page by page.
	MaxPages int `yaml:"max_pages"`
}

// Config maps scraper names to their configuration. Loaded once per run and
// never mutated afterwards.
type Config map[string]ScraperConfig

// LoadError is a fatal configuration failure; the run aborts before any
// network call.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads a YAML config file. An empty path yields an empty configuration:
// every scraper then runs on its defaults plus the CALENDAR_ID environment
// fallback.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if cfg == nil {
		cfg = Config{}
	}

	return cfg, nil
}

// Scraper returns the configuration for the named scraper, or a zero config
// if the file has no entry for it.
func (c Config) Scraper(name string) ScraperConfig {
	return c[name]
}

// DefaultCalendarID returns the global fallback calendar id from the
// environment, or "" if unset.
func DefaultCalendarID() string {
	return os.Getenv(EnvCalendarID)
}
