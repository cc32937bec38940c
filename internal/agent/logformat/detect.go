// Package logformat implements the format detector (C3): a one-shot
// heuristic (plus Docker-label override) that classifies a container's log
// lines into one of the formats in model.LogFormat.
package logformat

import (
	"bytes"
	"regexp"

	"github.com/docktail/fleet/internal/shared/model"
)

// LabelFormat is the docktail.log_format label key recognized by the
// detector's priority chain.
const LabelFormat = "docktail.log_format"

var kvPattern = regexp.MustCompile(`[A-Za-z0-9_]=`)

// FromLabel maps an explicit docktail.log_format label value to a format.
// Unknown values map to PlainText: fail open to the simplest format.
func FromLabel(value string) model.LogFormat {
	switch value {
	case "json":
		return model.FormatJSON
	case "logfmt":
		return model.FormatLogfmt
	case "syslog":
		return model.FormatSyslog
	case "plain", "plaintext", "plain_text", "text":
		return model.FormatPlainText
	default:
		return model.FormatPlainText
	}
}

// Detect runs the single-line heuristic used by the online pipeline: trim
// whitespace, then in order check for a JSON object, a logfmt-shaped line (at
// least two `key=` occurrences), falling back to PlainText.
func Detect(line []byte) model.LogFormat {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return model.FormatPlainText
	}

	if trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		return model.FormatJSON
	}

	if countKV(trimmed) >= 2 {
		return model.FormatLogfmt
	}

	return model.FormatPlainText
}

func countKV(line []byte) int {
	matches := kvPattern.FindAll(line, -1)
	return len(matches)
}

// Resolve implements the full format priority chain: an explicit label wins
// outright; otherwise a cached format (if enabled) is reused; otherwise the
// heuristic runs. cached is (format, ok) from the parser cache's Get.
func Resolve(labelValue string, hasLabel bool, cached model.LogFormat, cachedOK bool, line []byte) model.LogFormat {
	if hasLabel {
		return FromLabel(labelValue)
	}
	if cachedOK {
		return cached
	}
	return Detect(line)
}
