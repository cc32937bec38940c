// Package model holds the data types shared between the agent and cluster
// halves of the fleet: log records, container inventory, and the RPC-boundary
// shapes described by the log and stats pipelines.
package model

import "time"

// Stream identifies which container output stream a log line came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// LogLine is the output of the log-line decoder (C1): a timestamp extracted
// from the runtime-supplied prefix (or now(), when absent) and the remaining
// payload. Content is never required to be valid UTF-8.
type LogLine struct {
	TimestampNanos int64
	Stream         Stream
	Content        []byte
}

// LogFormat is the detected structure of a container's log lines. The
// ordering below (Json < Logfmt < Syslog < HttpLog < PlainText < Unknown) is
// part of the contract: callers that sort or compare formats rely on it.
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatLogfmt
	FormatSyslog
	FormatHTTPLog
	FormatPlainText
	FormatUnknown
)

func (f LogFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatLogfmt:
		return "logfmt"
	case FormatSyslog:
		return "syslog"
	case FormatHTTPLog:
		return "http_log"
	case FormatPlainText:
		return "plain_text"
	default:
		return "unknown"
	}
}

// Field is a single entry of ParsedLog.Fields. A plain slice of pairs is used
// instead of a map so that field order from the source line is preserved.
type Field struct {
	Key   string
	Value string
}

// RequestContext carries HTTP-access-log fields, populated by the HttpLog and
// (when present) JSON/logfmt parsers.
type RequestContext struct {
	Method       string
	Path         string
	RemoteAddr   string
	StatusCode   int
	HasStatus    bool
	DurationMs   float64
	HasDuration  bool
	RequestID    string
}

// ErrorContext carries exception/error fields extracted from structured logs.
type ErrorContext struct {
	Type       string
	Message    string
	StackTrace []string
	File       string
	Line       int
	HasLine    bool
}

// ParsedLog is the structured result of running a single log line through a
// format parser (C4). Level, Message, Logger and Timestamp are pointers so
// that "absent" is distinguishable from the empty string.
type ParsedLog struct {
	Level     *string
	Message   *string
	Logger    *string
	Timestamp *time.Time
	Request   *RequestContext
	Error     *ErrorContext
	Fields    []Field
	Raw       []byte
}

// PortMapping describes one published container port.
type PortMapping struct {
	PrivatePort uint16
	PublicPort  uint16
	Type        string
	IP          string
}

// ContainerInfo is the inventory record kept by the mark-and-sweep
// synchronizer (C9) and read by every RPC handler on the agent.
type ContainerInfo struct {
	ID         string
	Name       string
	Image      string
	State      string
	Status     string
	LogDriver  string
	Labels     map[string]string
	CreatedAt  int64
	Ports      []PortMapping
	StateInfo  *ContainerStateInfo
}

// ContainerStateInfo carries the runtime's detailed lifecycle state, used by
// the health/status projections.
type ContainerStateInfo struct {
	Running    bool
	Paused     bool
	Restarting bool
	OOMKilled  bool
	Dead       bool
	ExitCode   int
	Error      string
	StartedAt  string
	FinishedAt string
}

// NormalizedLogEntry is the per-line record produced after ANSI stripping,
// format detection and parsing, and consumed by the multiline grouper (C6)
// and filter engine (C7).
type NormalizedLogEntry struct {
	ContainerID    string
	TimestampNanos int64
	Stream         Stream
	Format         LogFormat
	Parsed         ParsedLog
	Sequence       uint64
}

// GroupedLogEntry is what C6 emits: a primary entry, possibly with
// continuation lines folded in.
type GroupedLogEntry struct {
	NormalizedLogEntry
	IsGrouped    bool
	LineCount    int
	GroupedLines [][]byte
}

// CPUStats is the projected CPU usage for one stats sample (C10).
type CPUStats struct {
	CPUPercentage float64
	TotalUsage    uint64
	SystemUsage   uint64
	OnlineCPUs    uint32
	PerCPUUsage   []uint64
	Throttling    *CPUThrottlingStats
}

// CPUThrottlingStats carries cgroup CFS throttling counters.
type CPUThrottlingStats struct {
	ThrottledPeriods uint64
	TotalPeriods     uint64
	ThrottledTime    uint64
}

// MemoryStats is the projected memory usage for one stats sample.
type MemoryStats struct {
	Usage      uint64
	MaxUsage   uint64
	Limit      uint64
	Percentage float64
	Cache      uint64
	RSS        uint64
	Swap       *uint64
}

// NetworkStats is per-interface traffic counters for one stats sample.
type NetworkStats struct {
	InterfaceName string
	RxBytes       uint64
	RxPackets     uint64
	RxErrors      uint64
	RxDropped     uint64
	TxBytes       uint64
	TxPackets     uint64
	TxErrors      uint64
	TxDropped     uint64
}

// BlockIoDeviceStats is one (major, minor) device's tallied I/O.
type BlockIoDeviceStats struct {
	Major      uint64
	Minor      uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// BlockIoStats is the deduplicated block-I/O projection for one sample.
type BlockIoStats struct {
	ReadBytes  uint64
	WriteBytes uint64
	ReadOps    uint64
	WriteOps   uint64
	Devices    []BlockIoDeviceStats
}

// ContainerStats is what the stats projector (C10) emits for one sample.
type ContainerStats struct {
	ContainerID  string
	Timestamp    time.Time
	CPU          CPUStats
	Memory       MemoryStats
	Network      []NetworkStats
	BlockIO      BlockIoStats
	PIDsCount    *int64
}
