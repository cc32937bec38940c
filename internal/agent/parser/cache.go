// Package parser implements the format parsers (C4) and the parser cache
// (C5): a concurrent map of per-container detected format and enable state,
// with the anti-thrash admission rule from spec §4.5.
package parser

import (
	"sync"

	"github.com/docktail/fleet/internal/shared/model"
)

// State is the per-container entry kept by the cache.
type State struct {
	Format  model.LogFormat
	Enabled bool
}

// Cache is the concurrent container-id -> State map described by C5.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]State
}

// NewCache creates an empty parser cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]State)}
}

// GetFormat returns the cached format for id, but only if it is enabled. The
// second return value is false when there is no entry, or the entry is
// disabled.
func (c *Cache) GetFormat(id string) (model.LogFormat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.entries[id]
	if !ok || !st.Enabled {
		return model.FormatUnknown, false
	}
	return st.Format, true
}

// SetFormat implements the anti-thrash admission rule: a fresh entry is
// inserted enabled; an existing entry whose format changes is updated and
// re-enabled; an existing entry whose format is unchanged keeps its current
// enabled/disabled state untouched. This is what prevents the
// enable->fail->disable->re-detect-same-format->re-enable loop.
func (c *Cache) SetFormat(id string, f model.LogFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.entries[id]
	if !ok {
		c.entries[id] = State{Format: f, Enabled: true}
		return
	}
	if st.Format != f {
		c.entries[id] = State{Format: f, Enabled: true}
	}
	// format == f: leave Enabled as-is.
}

// Disable flips the enabled flag off without touching the stored format.
func (c *Cache) Disable(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.entries[id]; ok {
		st.Enabled = false
		c.entries[id] = st
	}
}

// Enable flips the enabled flag on without touching the stored format.
func (c *Cache) Enable(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.entries[id]; ok {
		st.Enabled = true
		c.entries[id] = st
	}
}

// Remove deletes the entry for id, e.g. when the container leaves the
// inventory.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Stats is a single-pass snapshot of the cache's contents.
type Stats struct {
	Total    int
	Enabled  int
	Disabled int
}

// Stats returns counts over the current entries.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, st := range c.entries {
		if st.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
	}
	return s
}
