package logformat

import (
	"bytes"
	"regexp"

	"github.com/docktail/fleet/internal/shared/model"
)

// AdaptiveRefinementSize bounds how many sample lines the batch/"orchestrator"
// detector inspects before taking a majority vote.
const AdaptiveRefinementSize = 32

var (
	syslogPriPattern = regexp.MustCompile(`^<\d{1,5}>`)
	httpLogPattern   = regexp.MustCompile(`^\S+ \S+ \S+ \[[^\]]+\] "[A-Z]+ \S+ \S+" \d{3} \S+`)
)

// confidence scores a single line against each format, 0..1.
func confidence(line []byte) map[model.LogFormat]float64 {
	scores := make(map[model.LogFormat]float64, 4)
	trimmed := bytes.TrimSpace(line)

	if len(trimmed) > 0 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		scores[model.FormatJSON] = 1.0
	}
	if n := countKV(trimmed); n > 0 {
		scores[model.FormatLogfmt] = min1(float64(n) / 4.0)
	}
	if syslogPriPattern.Match(trimmed) {
		scores[model.FormatSyslog] = 1.0
	}
	if httpLogPattern.Match(trimmed) {
		scores[model.FormatHTTPLog] = 1.0
	}

	return scores
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

// DetectBatch runs the confidence-scored probes across up to
// AdaptiveRefinementSize samples and returns the format with the most votes
// (a sample votes for its single highest-confidence format, ties broken by
// model.LogFormat's fixed total ordering). Used for batch/offline sampling,
// never by the online per-line pipeline (which uses Detect).
func DetectBatch(samples [][]byte) model.LogFormat {
	if len(samples) > AdaptiveRefinementSize {
		samples = samples[:AdaptiveRefinementSize]
	}

	votes := make(map[model.LogFormat]int)
	for _, s := range samples {
		scores := confidence(s)
		best := model.FormatPlainText
		bestScore := 0.0
		for f, sc := range scores {
			if sc > bestScore || (sc == bestScore && f < best) {
				best = f
				bestScore = sc
			}
		}
		if bestScore == 0 {
			best = model.FormatPlainText
		}
		votes[best]++
	}

	winner := model.FormatPlainText
	winnerVotes := -1
	for f := model.FormatJSON; f <= model.FormatUnknown; f++ {
		if v := votes[f]; v > winnerVotes {
			winner = f
			winnerVotes = v
		}
	}
	return winner
}
