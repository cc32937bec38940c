package parser

import (
	"regexp"
	"strings"

	"github.com/docktail/fleet/internal/shared/model"
)

// tracingStyle matches lines like "2024-01-01T00:00:00Z INFO my::target: message".
var tracingStyle = regexp.MustCompile(`^(\S+)\s+(TRACE|DEBUG|INFO|WARN|ERROR|FATAL)\s+([\w:./-]+):\s*(.*)$`)

func isKeyByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '.'
}

// ParseLogfmt implements the streaming logfmt scanner from spec §4.4:
// alphanumeric+_+. keys, quoted-or-bare-run values, garbage tokens skipped.
// If the whole line matches the tracing-style "TIMESTAMP LEVEL TARGET: rest"
// shape it is parsed directly instead.
func ParseLogfmt(line []byte) (model.ParsedLog, error) {
	if len(line) > MaxLineSize {
		return model.ParsedLog{Raw: line}, &ParseError{Kind: ErrLineTooLarge, Msg: "line exceeds MaxLineSize"}
	}

	if m := tracingStyle.FindSubmatch(line); m != nil {
		level := string(m[2])
		logger := string(m[3])
		msg := string(m[4])
		return model.ParsedLog{
			Level:   &level,
			Logger:  &logger,
			Message: &msg,
			Raw:     line,
		}, nil
	}

	out := model.ParsedLog{Raw: line}
	s := string(line)
	i := 0
	n := len(s)

	for i < n {
		for i < n && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		start := i
		for i < n && isKeyByte(s[i]) {
			i++
		}
		if i == start || i >= n || s[i] != '=' {
			// Garbage token: skip to next whitespace.
			for i < n && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			continue
		}

		key := s[start:i]
		i++ // consume '='

		var value string
		if i < n && s[i] == '"' {
			i++
			var b strings.Builder
			for i < n && s[i] != '"' {
				if s[i] == '\\' && i+1 < n {
					i++
					b.WriteByte(s[i])
				} else {
					b.WriteByte(s[i])
				}
				i++
			}
			if i < n {
				i++ // consume closing quote
			}
			value = b.String()
		} else {
			start := i
			for i < n && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			value = s[start:i]
		}

		applyLogfmtKV(&out, key, value)
	}

	return out, nil
}

func applyLogfmtKV(out *model.ParsedLog, key, value string) {
	lower := strings.ToLower(key)
	switch {
	case levelKeys[lower]:
		v := value
		out.Level = &v
	case messageKeys[lower]:
		v := value
		out.Message = &v
	case loggerKeys[lower]:
		v := value
		out.Logger = &v
	default:
		out.Fields = append(out.Fields, model.Field{Key: key, Value: value})
	}
}
