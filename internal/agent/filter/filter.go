// Package filter implements the per-stream include/exclude regex engine
// (C7): a single precompiled pattern plus atomic scan/match/byte counters.
package filter

import (
	"fmt"
	"regexp"
	"sync/atomic"
)

// Mode selects whether a match includes or excludes the line.
type Mode int

const (
	ModeInclude Mode = iota
	ModeExclude
)

// Filter is bound to the lifetime of one log stream (spec §4.7) and is safe
// for concurrent use by readers that only call ShouldInclude; it is not
// meant to be shared across unrelated streams.
type Filter struct {
	re   *regexp.Regexp
	mode Mode

	linesScanned atomic.Uint64
	linesMatched atomic.Uint64
	bytesScanned atomic.Uint64
}

// New compiles pattern and builds a Filter. An invalid pattern is reported
// to the caller so request handlers (C12) can fail with invalid-argument
// rather than panicking later.
func New(pattern string, mode Mode) (*Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("filter: invalid pattern: %w", err)
	}
	return &Filter{re: re, mode: mode}, nil
}

// ShouldInclude reports whether line passes the filter, updating the three
// counters as a side effect. The include/exclude semantics are
// is_match(line) XOR (mode == Exclude).
func (f *Filter) ShouldInclude(line []byte) bool {
	f.linesScanned.Add(1)
	f.bytesScanned.Add(uint64(len(line)))

	matched := f.re.Match(line)
	if matched {
		f.linesMatched.Add(1)
	}
	return matched != (f.mode == ModeExclude)
}

// Stats is a point-in-time, non-transactional read of the counters.
type Stats struct {
	LinesScanned uint64
	LinesMatched uint64
	BytesScanned uint64
}

func (f *Filter) Stats() Stats {
	return Stats{
		LinesScanned: f.linesScanned.Load(),
		LinesMatched: f.linesMatched.Load(),
		BytesScanned: f.bytesScanned.Load(),
	}
}
