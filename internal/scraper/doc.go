// Package scraper defines the pluggable event-source contract and its
// registry, plus the built-in source implementations.
//
// Each scraper owns its own HTTP fetching and markup parsing and maps source
// fields onto the canonical event shape. Sources are registered by name in an
// explicit init step (RegisterBuiltins) and constructed through the registry
// with their per-source configuration, so adding a source is a new file plus
// one registration line.
package scraper
