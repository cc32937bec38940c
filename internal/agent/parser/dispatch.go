package parser

import "github.com/docktail/fleet/internal/shared/model"

// ParseFunc is the shape every format parser implements.
type ParseFunc func(line []byte) (model.ParsedLog, error)

// dispatch replaces the trait-object/dyn-dispatch approach of the original
// source (design note §9): a small table keyed by the fixed LogFormat enum,
// no inheritance required.
var dispatch = map[model.LogFormat]ParseFunc{
	model.FormatJSON:      ParseJSON,
	model.FormatLogfmt:    ParseLogfmt,
	model.FormatSyslog:    ParseSyslog,
	model.FormatHTTPLog:   ParseHTTPLog,
	model.FormatPlainText: ParsePlainText,
	model.FormatUnknown:   ParsePlainText,
}

// Parse dispatches line to the parser registered for format. Any failure
// (including an oversized line) degrades to PlainText per spec §7 — the
// caller still receives the original ParseError so it can update metrics.
func Parse(format model.LogFormat, line []byte) (model.ParsedLog, error) {
	fn, ok := dispatch[format]
	if !ok {
		fn = ParsePlainText
	}

	out, err := fn(line)
	if err != nil {
		plain, _ := ParsePlainText(line)
		return plain, err
	}
	return out, nil
}
