// Package metrics is the agent's parsing metrics core (C8): atomic counters
// grouped by domain, each padded to its own cache line so that a hot
// counter in one group never bounces a cache line shared with another.
package metrics

import (
	"sync/atomic"

	"github.com/docktail/fleet/internal/shared/model"
)

// cacheLinePad reserves the rest of a 64-byte cache line after the group's
// counters. Most x86-64 and ARM64 cores use a 64-byte line; padding each
// group onto its own avoids false sharing under concurrent updates from
// different goroutines (detection vs. per-line parsing vs. errors).
type cacheLinePad [64]byte

type detectionGroup struct {
	attempts atomic.Uint64
	success  atomic.Uint64
	fallback atomic.Uint64
	_        cacheLinePad
}

type formatGroup struct {
	json   atomic.Uint64
	logfmt atomic.Uint64
	syslog atomic.Uint64
	http   atomic.Uint64
	plain  atomic.Uint64
	_      cacheLinePad
}

type totalsGroup struct {
	timeNanos atomic.Uint64
	count     atomic.Uint64
	_         cacheLinePad
}

// ErrorKind classifies a parse failure for the errors group.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorTimeout
	ErrorPanic
	ErrorTooLarge
	ErrorNonUTF8
)

type errorGroup struct {
	generic  atomic.Uint64
	timeout  atomic.Uint64
	panicked atomic.Uint64
	tooLarge atomic.Uint64
	nonUTF8  atomic.Uint64
	_        cacheLinePad
}

type gaugeGroup struct {
	activeContainers   atomic.Int64
	disabledContainers atomic.Int64
	_                  cacheLinePad
}

type systemGroup struct {
	dockerConsecutiveFailures atomic.Uint64
	_                         cacheLinePad
}

// Metrics is the agent-wide parsing metrics instance. The zero value is
// ready to use.
type Metrics struct {
	detection detectionGroup
	formats   formatGroup
	totals    totalsGroup
	errors    errorGroup
	gauges    gaugeGroup
	system    systemGroup
}

// New returns a ready-to-use Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordDetection(success bool) {
	m.detection.attempts.Add(1)
	if success {
		m.detection.success.Add(1)
	} else {
		m.detection.fallback.Add(1)
	}
}

// RecordParse is the hottest path, called once per log line.
func (m *Metrics) RecordParse(format model.LogFormat, elapsedNanos uint64) {
	m.totals.count.Add(1)
	m.totals.timeNanos.Add(elapsedNanos)

	switch format {
	case model.FormatJSON:
		m.formats.json.Add(1)
	case model.FormatLogfmt:
		m.formats.logfmt.Add(1)
	case model.FormatSyslog:
		m.formats.syslog.Add(1)
	case model.FormatHTTPLog:
		m.formats.http.Add(1)
	default:
		m.formats.plain.Add(1)
	}
}

func (m *Metrics) RecordError(kind ErrorKind) {
	switch kind {
	case ErrorTimeout:
		m.errors.timeout.Add(1)
	case ErrorPanic:
		m.errors.panicked.Add(1)
	case ErrorTooLarge:
		m.errors.tooLarge.Add(1)
	case ErrorNonUTF8:
		m.errors.nonUTF8.Add(1)
	default:
		m.errors.generic.Add(1)
	}
}

func (m *Metrics) IncActiveContainers()   { m.gauges.activeContainers.Add(1) }
func (m *Metrics) DecActiveContainers()   { m.gauges.activeContainers.Add(-1) }
func (m *Metrics) IncDisabledContainers() { m.gauges.disabledContainers.Add(1) }
func (m *Metrics) DecDisabledContainers() { m.gauges.disabledContainers.Add(-1) }

func (m *Metrics) SetDockerFailures(count uint64) {
	m.system.dockerConsecutiveFailures.Store(count)
}

// Snapshot is a point-in-time, non-transactional read of every counter.
// Fields may be slightly skewed relative to each other under concurrent
// writers; that tradeoff is accepted in exchange for lock-free hot paths.
type Snapshot struct {
	DetectionAttempts uint64
	DetectionSuccess  uint64
	DetectionFallback uint64

	JSONParsed   uint64
	LogfmtParsed uint64
	SyslogParsed uint64
	HTTPParsed   uint64
	PlainParsed  uint64

	TotalParsed     uint64
	AvgParseTimeUs  float64

	ParseErrors    uint64
	ParseTimeouts  uint64
	ParsePanics    uint64
	LinesTooLarge  uint64
	NonUTF8Content uint64
	SuccessRate    float64

	ActiveContainers   int64
	DisabledContainers int64

	DockerConsecutiveFailures uint64
}

func (m *Metrics) Snapshot() Snapshot {
	totalParsed := m.totals.count.Load()
	totalTimeNs := m.totals.timeNanos.Load()

	parseErrors := m.errors.generic.Load()
	parseTimeouts := m.errors.timeout.Load()
	parsePanics := m.errors.panicked.Load()
	linesTooLarge := m.errors.tooLarge.Load()
	nonUTF8 := m.errors.nonUTF8.Load()
	totalErrors := parseErrors + parseTimeouts + parsePanics + linesTooLarge + nonUTF8
	totalAttempts := totalParsed + totalErrors

	avgParseTimeUs := 0.0
	if totalParsed > 0 {
		avgParseTimeUs = (float64(totalTimeNs) / float64(totalParsed)) / 1000.0
	}

	successRate := 1.0
	if totalAttempts > 0 {
		successRate = float64(totalParsed) / float64(totalAttempts)
	}

	return Snapshot{
		DetectionAttempts: m.detection.attempts.Load(),
		DetectionSuccess:  m.detection.success.Load(),
		DetectionFallback: m.detection.fallback.Load(),

		JSONParsed:   m.formats.json.Load(),
		LogfmtParsed: m.formats.logfmt.Load(),
		SyslogParsed: m.formats.syslog.Load(),
		HTTPParsed:   m.formats.http.Load(),
		PlainParsed:  m.formats.plain.Load(),

		TotalParsed:    totalParsed,
		AvgParseTimeUs: avgParseTimeUs,

		ParseErrors:    parseErrors,
		ParseTimeouts:  parseTimeouts,
		ParsePanics:    parsePanics,
		LinesTooLarge:  linesTooLarge,
		NonUTF8Content: nonUTF8,
		SuccessRate:    successRate,

		ActiveContainers:   m.gauges.activeContainers.Load(),
		DisabledContainers: m.gauges.disabledContainers.Load(),

		DockerConsecutiveFailures: m.system.dockerConsecutiveFailures.Load(),
	}
}
