package grouper

import (
	"bytes"
	"regexp"
	"strings"
)

// rustBacktraceFrame matches Rust backtrace numbering: "   12: some::path".
var rustBacktraceFrame = regexp.MustCompile(`^\s{3}\d+:`)

var exactPrefixes = [][]byte{
	[]byte("   at "),
	[]byte("\tat "),
	[]byte("\t at "),
	[]byte("Caused by:"),
	[]byte("caused by:"),
	[]byte("due to:"),
	[]byte("Suppressed:"),
	[]byte("  File \""),
	[]byte("    raise "),
	[]byte("Traceback "),
	[]byte("   --- "),
	[]byte("   at System."),
	[]byte("   at Microsoft."),
}

var bulletPrefixes = []string{"...", "└", "↳", "│", "├"}

var errorAnchors = []string{"panic", "ERROR", "Exception", "exception", "error:", "FATAL", "fatal", "PANIC", "Traceback", "thread '"}

// isContinuation implements the ordered continuation rule set from spec §4.6.
// previousPrimaryContent is the raw bytes of the primary line the current
// group was opened with; previousLevel is its derived log level, if any.
func isContinuation(line []byte, previousPrimaryContent []byte, previousLevel *string, requireErrorAnchor bool) bool {
	for _, p := range exactPrefixes {
		if bytes.HasPrefix(line, p) {
			return true
		}
	}

	if bytes.HasPrefix(line, []byte("goroutine ")) && containsAny(previousPrimaryContent, "panic", "runtime error") {
		return true
	}

	if rustBacktraceFrame.Match(line) {
		return true
	}

	for _, b := range bulletPrefixes {
		if bytes.HasPrefix(line, []byte(b)) {
			return true
		}
	}

	if bytes.HasPrefix(line, []byte("    ")) || bytes.HasPrefix(line, []byte("\t")) {
		if !requireErrorAnchor {
			return true
		}
		if isErrorLevel(previousLevel) || containsAnyOf(previousPrimaryContent, errorAnchors) {
			return true
		}
		return false
	}

	return false
}

func containsAny(line []byte, needles ...string) bool {
	return containsAnyOf(line, needles)
}

func containsAnyOf(line []byte, needles []string) bool {
	for _, n := range needles {
		if bytes.Contains(line, []byte(n)) {
			return true
		}
	}
	return false
}

var errorLevels = map[string]bool{
	"error": true, "err": true, "emerg": true, "alert": true, "crit": true,
	"fatal": true, "panic": true,
}

func isErrorLevel(level *string) bool {
	if level == nil {
		return false
	}
	return errorLevels[strings.ToLower(*level)]
}
