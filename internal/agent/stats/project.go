// Package stats implements the stats projector (C10): it turns a raw
// Docker stats sample into the percentages and deduplicated counters the
// cluster side actually wants, with the runtime's one-shot-mode quirk
// (CPU percentage always 0%) left as documented behavior rather than
// papered over.
package stats

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
)

// Project decodes one Docker stats sample and derives the percentages and
// deduplicated block-I/O view described in spec §4.10.
func Project(containerID string, raw []byte) (model.ContainerStats, error) {
	var rs rawStats
	if err := json.Unmarshal(raw, &rs); err != nil {
		return model.ContainerStats{}, err
	}

	out := model.ContainerStats{
		ContainerID: containerID,
		Timestamp:   timestampOf(rs.Read),
		CPU:         projectCPU(rs.CPUStats, rs.PreCPUStats),
		Memory:      projectMemory(rs.MemoryStats),
		Network:     projectNetwork(rs.Networks),
		BlockIO:     projectBlockIO(rs.BlkioStats),
	}
	if rs.PidsStats != nil {
		out.PIDsCount = rs.PidsStats.Current
	}
	return out, nil
}

func timestampOf(read string) time.Time {
	if read != "" {
		if t, err := time.Parse(time.RFC3339Nano, read); err == nil {
			return t
		}
	}
	return time.Now()
}

// saturatingSub mirrors Rust's saturating_sub: it never underflows below 0.
func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

func projectCPU(cur, prev *rawCPU) model.CPUStats {
	if cur == nil {
		return model.CPUStats{}
	}

	out := model.CPUStats{
		TotalUsage:  cur.CPUUsage.TotalUsage,
		SystemUsage: cur.SystemCPUUsage,
		OnlineCPUs:  cur.OnlineCPUs,
		PerCPUUsage: cur.CPUUsage.PercpuUsage,
	}
	if cur.ThrottlingData != nil {
		out.Throttling = &model.CPUThrottlingStats{
			ThrottledPeriods: cur.ThrottlingData.ThrottledPeriods,
			TotalPeriods:     cur.ThrottlingData.Periods,
			ThrottledTime:    cur.ThrottlingData.ThrottledTime,
		}
	}

	if prev == nil {
		return out
	}

	deltaCPU := saturatingSub(cur.CPUUsage.TotalUsage, prev.CPUUsage.TotalUsage)
	deltaSys := saturatingSub(cur.SystemCPUUsage, prev.SystemCPUUsage)
	if deltaCPU > 0 && deltaSys > 0 {
		onlineCPUs := cur.OnlineCPUs
		if onlineCPUs == 0 {
			onlineCPUs = 1
		}
		pct := (float64(deltaCPU) / float64(deltaSys)) * float64(onlineCPUs) * 100.0
		if !math.IsNaN(pct) && !math.IsInf(pct, 0) {
			out.CPUPercentage = pct
		}
	}
	return out
}

func projectMemory(m *rawMemory) model.MemoryStats {
	if m == nil {
		return model.MemoryStats{}
	}

	out := model.MemoryStats{
		Usage:    m.Usage,
		MaxUsage: m.MaxUsage,
		Limit:    m.Limit,
	}
	if m.Limit > 0 {
		out.Percentage = (float64(m.Usage) / float64(m.Limit)) * 100.0
	}
	if m.Stats != nil {
		out.Cache = m.Stats["cache"]
		out.RSS = m.Stats["rss"]
		if swap, ok := m.Stats["swap"]; ok {
			out.Swap = &swap
		}
	}
	return out
}

func projectNetwork(nets map[string]rawNetwork) []model.NetworkStats {
	if len(nets) == 0 {
		return nil
	}
	out := make([]model.NetworkStats, 0, len(nets))
	for iface, n := range nets {
		out = append(out, model.NetworkStats{
			InterfaceName: iface,
			RxBytes:       n.RxBytes,
			RxPackets:     n.RxPackets,
			RxErrors:      n.RxErrors,
			RxDropped:     n.RxDropped,
			TxBytes:       n.TxBytes,
			TxPackets:     n.TxPackets,
			TxErrors:      n.TxErrors,
			TxDropped:     n.TxDropped,
		})
	}
	return out
}

type deviceKey struct{ major, minor uint64 }

// projectBlockIO deduplicates device entries by (major, minor) and tallies
// read/write bytes and op counts with case-insensitive op matching, per
// spec §4.10.
func projectBlockIO(b *rawBlkio) model.BlockIoStats {
	if b == nil {
		return model.BlockIoStats{}
	}

	var readBytes, writeBytes, readOps, writeOps uint64
	devices := make(map[deviceKey]*model.BlockIoDeviceStats)

	for _, e := range b.IoServiceBytesRecursive {
		key := deviceKey{e.Major, e.Minor}
		dev, ok := devices[key]
		if !ok {
			dev = &model.BlockIoDeviceStats{Major: e.Major, Minor: e.Minor}
			devices[key] = dev
		}
		switch strings.ToLower(e.Op) {
		case "read":
			readBytes += e.Value
			dev.ReadBytes += e.Value
		case "write":
			writeBytes += e.Value
			dev.WriteBytes += e.Value
		}
	}

	for _, e := range b.IoServicedRecursive {
		switch strings.ToLower(e.Op) {
		case "read":
			readOps += e.Value
		case "write":
			writeOps += e.Value
		}
	}

	devList := make([]model.BlockIoDeviceStats, 0, len(devices))
	for _, d := range devices {
		devList = append(devList, *d)
	}

	return model.BlockIoStats{
		ReadBytes:  readBytes,
		WriteBytes: writeBytes,
		ReadOps:    readOps,
		WriteOps:   writeOps,
		Devices:    devList,
	}
}
