package rpcproto

import "github.com/docktail/fleet/internal/shared/model"

// ListContainersRequest/Response back the agent's inventory unary RPC.
type ListContainersRequest struct {
	All bool `json:"all"`
}

type ListContainersResponse struct {
	Containers []model.ContainerInfo `json:"containers"`
}

// InspectContainerRequest/Response back the agent's single-container lookup.
type InspectContainerRequest struct {
	ID string `json:"id"`
}

type InspectContainerResponse struct {
	Container model.ContainerInfo `json:"container"`
}

// ControlOp enumerates the lifecycle operations §6 lists for the runtime
// client's contract (start, stop, restart, pause, unpause, remove).
type ControlOp string

const (
	ControlStart   ControlOp = "start"
	ControlStop    ControlOp = "stop"
	ControlRestart ControlOp = "restart"
	ControlPause   ControlOp = "pause"
	ControlUnpause ControlOp = "unpause"
	ControlRemove  ControlOp = "remove"
)

type ControlRequest struct {
	ContainerID string    `json:"container_id"`
	Op          ControlOp `json:"op"`
}

type ControlResponse struct {
	OK bool `json:"ok"`
}

// StreamLogsRequest backs the agent's server-streaming log RPC (spec §4.12).
type StreamLogsRequest struct {
	ContainerID string `json:"container_id"`
	Follow      bool   `json:"follow"`
	Pattern     string `json:"pattern,omitempty"`
	ExcludeMode bool   `json:"exclude_mode,omitempty"`
	SinceSecs   *int64 `json:"since_secs,omitempty"`
	UntilSecs   *int64 `json:"until_secs,omitempty"`
	Tail        string `json:"tail,omitempty"`
}

// LogEntryFrame is one server-streamed log frame. Sequence is strictly
// increasing per stream starting at 0 (spec §6).
type LogEntryFrame struct {
	Entry model.GroupedLogEntry `json:"entry"`
}

// StatsRequest/StatsFrame back both the one-shot and streaming stats RPCs.
type StatsRequest struct {
	ContainerID string `json:"container_id"`
	Stream      bool   `json:"stream"`
}

type StatsFrame struct {
	Stats model.ContainerStats `json:"stats"`
}

// HealthSnapshotResponse mirrors the agent's own health evaluation (C11) so
// the cluster's health-check RPC can show a reason, not just a status code.
type HealthSnapshotResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Node is one entry returned by list_nodes, consumed by discovery (C14).
type Node struct {
	ID       string            `json:"id"`
	Addr     string            `json:"addr"`
	Hostname string            `json:"hostname"`
	Labels   map[string]string `json:"labels"`
}

type ListNodesRequest struct{}

type ListNodesResponse struct {
	Nodes []Node `json:"nodes"`
}

// EventFrame is one server-streamed runtime event (container started,
// stopped, health_status, etc.) — §6 lists events alongside logs and stats
// as the agent's streaming RPCs.
type EventFrame struct {
	Type        string            `json:"type"`
	ContainerID string            `json:"container_id"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	TimeNanos   int64             `json:"time_nanos"`
}

type StreamEventsRequest struct {
	ContainerID string `json:"container_id,omitempty"`
}

// ExecCommandRequest backs the agent's kill-on-timeout exec contract
// (spec §5/§7). TimeoutMS of 0 means wait forever.
type ExecCommandRequest struct {
	ContainerID string   `json:"container_id"`
	Cmd         []string `json:"cmd"`
	TimeoutMS   int64    `json:"timeout_ms,omitempty"`
}

type ExecCommandResponse struct {
	ExitCode int  `json:"exit_code"`
	TimedOut bool `json:"timed_out"`
}
