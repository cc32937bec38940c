package stats

// rawStats mirrors the subset of the Docker Engine's /containers/{id}/stats
// JSON payload the projector needs. The Docker API returns this shape
// directly from cgroups, not as a typed Go struct in older client
// releases, so it is decoded by hand here rather than pulled from
// github.com/docker/docker/api/types (which does not expose a stable
// top-level type across daemon versions).
type rawStats struct {
	Read       string       `json:"read"`
	CPUStats   *rawCPU      `json:"cpu_stats"`
	PreCPUStats *rawCPU     `json:"precpu_stats"`
	MemoryStats *rawMemory  `json:"memory_stats"`
	Networks   map[string]rawNetwork `json:"networks"`
	BlkioStats *rawBlkio    `json:"blkio_stats"`
	PidsStats  *rawPids     `json:"pids_stats"`
}

type rawCPU struct {
	CPUUsage       rawCPUUsage `json:"cpu_usage"`
	SystemCPUUsage uint64      `json:"system_cpu_usage"`
	OnlineCPUs     uint32      `json:"online_cpus"`
	ThrottlingData *rawThrottling `json:"throttling_data"`
}

type rawCPUUsage struct {
	TotalUsage  uint64   `json:"total_usage"`
	PercpuUsage []uint64 `json:"percpu_usage"`
}

type rawThrottling struct {
	Periods          uint64 `json:"periods"`
	ThrottledPeriods uint64 `json:"throttled_periods"`
	ThrottledTime    uint64 `json:"throttled_time"`
}

type rawMemory struct {
	Usage    uint64            `json:"usage"`
	MaxUsage uint64            `json:"max_usage"`
	Limit    uint64            `json:"limit"`
	Stats    map[string]uint64 `json:"stats"`
}

type rawNetwork struct {
	RxBytes   uint64 `json:"rx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	RxErrors  uint64 `json:"rx_errors"`
	RxDropped uint64 `json:"rx_dropped"`
	TxBytes   uint64 `json:"tx_bytes"`
	TxPackets uint64 `json:"tx_packets"`
	TxErrors  uint64 `json:"tx_errors"`
	TxDropped uint64 `json:"tx_dropped"`
}

type rawBlkioEntry struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Op    string `json:"op"`
	Value uint64 `json:"value"`
}

type rawBlkio struct {
	IoServiceBytesRecursive []rawBlkioEntry `json:"io_service_bytes_recursive"`
	IoServicedRecursive     []rawBlkioEntry `json:"io_serviced_recursive"`
}

type rawPids struct {
	Current *int64 `json:"current"`
}
