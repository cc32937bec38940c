// Package grouper implements the multiline grouper (C6): a per-stream state
// machine that folds continuation lines (stack traces, wrapped exceptions)
// into a single grouped entry, flushed on a line-count cap or an age timeout.
package grouper

import (
	"sync"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
)

// Config mirrors the multiline.* settings in spec §8, already resolved
// through the label-override precedence chain by the caller.
type Config struct {
	Enabled            bool
	TimeoutMs          int
	MaxLines           int
	RequireErrorAnchor bool
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type state int

const (
	stateEmpty state = iota
	stateBuffering
	statePassthrough
)

type openGroup struct {
	primary       model.NormalizedLogEntry
	continuations [][]byte
	startedAt     time.Time
}

// Grouper holds the state machine for one container log stream. Process,
// CheckTimeout and Flush take the Grouper's own mutex, so they may be called
// from different goroutines; the zero value is not usable, use New.
type Grouper struct {
	cfg Config

	mu    sync.Mutex
	st    state
	group *openGroup
}

// New builds a Grouper for one stream. When cfg.Enabled is false the
// returned Grouper starts in Passthrough and never buffers.
func New(cfg Config) *Grouper {
	g := &Grouper{cfg: cfg, st: stateEmpty}
	if !cfg.Enabled {
		g.st = statePassthrough
	}
	return g
}

// Process feeds one normalized entry through the state machine and returns
// zero or one completed entry. In Passthrough (grouping disabled, or from the
// first JSON or logfmt entry on, permanently) it returns the entry itself,
// unbuffered; a group still open at that switch stays pending until Flush or
// CheckTimeout. Otherwise a continuation line is folded into the open group,
// which is returned once it reaches MaxLines or its timeout, and any other
// line returns the previous group (if one is open) and starts a new one.
func (g *Grouper) Process(entry model.NormalizedLogEntry) []model.GroupedLogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isSelfContained(entry.Format) {
		g.st = statePassthrough
	}

	if g.st == statePassthrough {
		return []model.GroupedLogEntry{asGrouped(entry, nil)}
	}

	if g.group == nil {
		g.group = &openGroup{primary: entry, startedAt: now()}
		g.st = stateBuffering
		return nil
	}

	if isContinuation(entry.Parsed.Raw, g.group.primary.Parsed.Raw, g.group.primary.Parsed.Level, g.cfg.RequireErrorAnchor) {
		g.group.continuations = append(g.group.continuations, entry.Parsed.Raw)

		full := len(g.group.continuations)+1 >= g.cfg.MaxLines
		aged := now().Sub(g.group.startedAt) >= g.cfg.timeout()
		if full || aged {
			out := g.flushLocked()
			return []model.GroupedLogEntry{out}
		}
		return nil
	}

	var flushed []model.GroupedLogEntry
	if prev := g.flushLocked(); prev != nil {
		flushed = append(flushed, *prev)
	}
	g.group = &openGroup{primary: entry, startedAt: now()}
	return flushed
}

// CheckTimeout is driven by the serving loop's 150ms timer tick (spec §4.12
// step 7). It flushes the open group if its age has exceeded the timeout.
func (g *Grouper) CheckTimeout(at time.Time) *model.GroupedLogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.group == nil {
		return nil
	}
	if at.Sub(g.group.startedAt) < g.cfg.timeout() {
		return nil
	}
	return g.flushLocked()
}

// Flush drains any pending group unconditionally — called on stream end or
// upstream error (spec §4.6, §4.12 step 6).
func (g *Grouper) Flush() *model.GroupedLogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flushLocked()
}

func (g *Grouper) flushLocked() *model.GroupedLogEntry {
	if g.group == nil {
		return nil
	}
	grp := g.group
	g.group = nil
	out := asGrouped(grp.primary, grp.continuations)
	return &out
}

func asGrouped(primary model.NormalizedLogEntry, continuations [][]byte) model.GroupedLogEntry {
	return model.GroupedLogEntry{
		NormalizedLogEntry: primary,
		IsGrouped:          len(continuations) > 0,
		LineCount:          1 + len(continuations),
		GroupedLines:       continuations,
	}
}

func isSelfContained(f model.LogFormat) bool {
	return f == model.FormatJSON || f == model.FormatLogfmt
}

// now is indirected so tests can freeze the clock without sleeping for
// real timeouts.
var now = time.Now
