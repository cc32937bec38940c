package health

import (
	"testing"

	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_PanicOutranksEverything(t *testing.T) {
	snap := metrics.Snapshot{ParsePanics: 1, DockerConsecutiveFailures: 5, TotalParsed: 1000, SuccessRate: 0.1}
	eval := Evaluate(snap)
	require.Equal(t, StatusUnhealthy, eval.Status)
	require.Contains(t, eval.Message, "panic")
}

func TestEvaluate_DockerFailuresUnhealthy(t *testing.T) {
	snap := metrics.Snapshot{DockerConsecutiveFailures: 3, TotalParsed: 1000, SuccessRate: 1.0}
	eval := Evaluate(snap)
	require.Equal(t, StatusUnhealthy, eval.Status)
}

func TestEvaluate_TwoFailuresNotYetUnhealthy(t *testing.T) {
	snap := metrics.Snapshot{DockerConsecutiveFailures: 2, TotalParsed: 10, SuccessRate: 1.0}
	eval := Evaluate(snap)
	require.Equal(t, StatusHealthy, eval.Status)
}

func TestEvaluate_DegradedOnLowSuccessRate(t *testing.T) {
	snap := metrics.Snapshot{TotalParsed: 101, SuccessRate: 0.5}
	eval := Evaluate(snap)
	require.Equal(t, StatusDegraded, eval.Status)
}

func TestEvaluate_LowSuccessRateBelowVolumeThresholdStaysHealthy(t *testing.T) {
	snap := metrics.Snapshot{TotalParsed: 50, SuccessRate: 0.1}
	eval := Evaluate(snap)
	require.Equal(t, StatusHealthy, eval.Status)
}

func TestEvaluate_Healthy(t *testing.T) {
	snap := metrics.Snapshot{TotalParsed: 1000, SuccessRate: 0.99}
	eval := Evaluate(snap)
	require.Equal(t, StatusHealthy, eval.Status)
	require.Equal(t, "ok", eval.Message)
}
