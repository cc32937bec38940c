package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProject_CPUPercentage(t *testing.T) {
	raw := []byte(`{
		"read": "2024-05-01T12:00:01Z",
		"cpu_stats": {"cpu_usage": {"total_usage": 2000000000}, "system_cpu_usage": 10000000000, "online_cpus": 2},
		"precpu_stats": {"cpu_usage": {"total_usage": 1000000000}, "system_cpu_usage": 9000000000},
		"memory_stats": {"usage": 500, "limit": 1000},
		"blkio_stats": {}
	}`)
	out, err := Project("c1", raw)
	require.NoError(t, err)
	// delta_cpu=1e9, delta_sys=1e9, pct = (1e9/1e9)*2*100 = 200
	require.InDelta(t, 200.0, out.CPU.CPUPercentage, 0.001)
	require.InDelta(t, 50.0, out.Memory.Percentage, 0.001)
}

func TestProject_OneShotModeYieldsZeroPercent(t *testing.T) {
	// Spec: one-shot stats (stream=false) report identical cur/precpu, so
	// delta is always zero and percentage stays 0%.
	raw := []byte(`{
		"cpu_stats": {"cpu_usage": {"total_usage": 5000000000}, "system_cpu_usage": 20000000000, "online_cpus": 4},
		"precpu_stats": {"cpu_usage": {"total_usage": 5000000000}, "system_cpu_usage": 20000000000}
	}`)
	out, err := Project("c1", raw)
	require.NoError(t, err)
	require.Equal(t, 0.0, out.CPU.CPUPercentage)
}

func TestProject_MemoryZeroLimit(t *testing.T) {
	raw := []byte(`{"memory_stats": {"usage": 500, "limit": 0}}`)
	out, err := Project("c1", raw)
	require.NoError(t, err)
	require.Equal(t, 0.0, out.Memory.Percentage)
}

func TestProject_BlockIODedupedByMajorMinor(t *testing.T) {
	raw := []byte(`{
		"blkio_stats": {
			"io_service_bytes_recursive": [
				{"major": 8, "minor": 0, "op": "Read", "value": 100},
				{"major": 8, "minor": 0, "op": "read", "value": 50},
				{"major": 8, "minor": 0, "op": "Write", "value": 20},
				{"major": 8, "minor": 1, "op": "Read", "value": 10}
			],
			"io_serviced_recursive": [
				{"major": 8, "minor": 0, "op": "Read", "value": 2},
				{"major": 8, "minor": 0, "op": "Write", "value": 1}
			]
		}
	}`)
	out, err := Project("c1", raw)
	require.NoError(t, err)
	require.Equal(t, uint64(160), out.BlockIO.ReadBytes)
	require.Equal(t, uint64(20), out.BlockIO.WriteBytes)
	require.Equal(t, uint64(2), out.BlockIO.ReadOps)
	require.Equal(t, uint64(1), out.BlockIO.WriteOps)
	require.Len(t, out.BlockIO.Devices, 2, "deduplicated to one entry per (major, minor)")

	var found bool
	for _, d := range out.BlockIO.Devices {
		if d.Major == 8 && d.Minor == 0 {
			require.Equal(t, uint64(150), d.ReadBytes)
			require.Equal(t, uint64(20), d.WriteBytes)
			found = true
		}
	}
	require.True(t, found)
}

func TestProject_TimestampFallsBackToNowWhenReadMissing(t *testing.T) {
	out, err := Project("c1", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, out.Timestamp.IsZero())
}

func TestProject_MalformedJSON(t *testing.T) {
	_, err := Project("c1", []byte(`not json`))
	require.Error(t, err)
}
