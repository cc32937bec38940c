// Package health implements the pure health evaluator (C11): a priority
// rule chain over a metrics snapshot, with no side effects of its own.
package health

import (
	"fmt"

	"github.com/docktail/fleet/internal/agent/metrics"
)

// Status is the coarse health classification returned by Evaluate.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDegraded:
		return "degraded"
	default:
		return "healthy"
	}
}

// Evaluation is the shape shared by the check() RPC and the watch() stream.
type Evaluation struct {
	Status  Status
	Message string
}

const (
	minConsecutiveFailuresForUnhealthy = 3
	minParsedForDegradedCheck          = 100
	minSuccessRateForHealthy           = 0.80
)

// Evaluate applies the fixed priority chain from spec §4.11: a parser panic
// outranks Docker connectivity, which outranks a degraded success rate.
func Evaluate(snap metrics.Snapshot) Evaluation {
	if snap.ParsePanics > 0 {
		return Evaluation{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("%d parser panic(s) recorded", snap.ParsePanics),
		}
	}

	if snap.DockerConsecutiveFailures >= minConsecutiveFailuresForUnhealthy {
		return Evaluation{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("%d consecutive Docker API failures", snap.DockerConsecutiveFailures),
		}
	}

	if snap.TotalParsed > minParsedForDegradedCheck && snap.SuccessRate < minSuccessRateForHealthy {
		return Evaluation{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("parse success rate %.2f%% below threshold over %d lines", snap.SuccessRate*100, snap.TotalParsed),
		}
	}

	return Evaluation{Status: StatusHealthy, Message: "ok"}
}
