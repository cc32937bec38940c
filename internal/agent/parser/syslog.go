package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
)

var (
	priPattern    = regexp.MustCompile(`^<(\d{1,5})>`)
	rfc3164Prefix = regexp.MustCompile(`^(\w{3})\s+(\d{1,2}) (\d{2}):(\d{2}):(\d{2}) (\S+) ([^:\[]+)(?:\[(\d+)\])?: (.*)$`)
)

var severityName = []string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}

// ParseSyslog implements the syslog parser from spec §4.4: a leading <PRI>
// prefix selects facility/severity, then RFC5424 ("<PRI>1 SP ...") or
// RFC3164 ("<PRI>MMM DD HH:MM:SS HOST TAG[PID]: MSG") framing is parsed.
func ParseSyslog(line []byte) (model.ParsedLog, error) {
	if len(line) > MaxLineSize {
		return model.ParsedLog{Raw: line}, &ParseError{Kind: ErrLineTooLarge, Msg: "line exceeds MaxLineSize"}
	}

	s := string(line)
	m := priPattern.FindStringSubmatch(s)
	if m == nil {
		return model.ParsedLog{Raw: line}, newParseFailed("missing <PRI> prefix")
	}

	pri, err := strconv.Atoi(m[1])
	if err != nil {
		return model.ParsedLog{Raw: line}, newParseFailed("invalid PRI value")
	}
	facility := pri >> 3
	severity := pri & 7
	rest := s[len(m[0]):]

	level := severityName[severity]
	out := model.ParsedLog{Raw: line, Level: &level}
	out.Fields = append(out.Fields, model.Field{Key: "facility", Value: strconv.Itoa(facility)})

	if strings.HasPrefix(rest, "1 ") {
		return parseRFC5424(out, rest[2:])
	}
	return parseRFC3164(out, rest)
}

func parseRFC5424(out model.ParsedLog, rest string) (model.ParsedLog, error) {
	// TIMESTAMP HOSTNAME APP-NAME PROCID MSGID [SD] MSG, space-separated
	// header fields followed by free-form content; structured data is left
	// in the message since the core pipeline does not need it parsed.
	fields := strings.SplitN(rest, " ", 5)
	if len(fields) < 5 {
		return out, newParseFailed("truncated RFC5424 header")
	}

	if fields[0] != "-" {
		if t, err := time.Parse(time.RFC3339Nano, fields[0]); err == nil {
			out.Timestamp = &t
		}
	}

	hostname, appName, procID := fields[1], fields[2], fields[3]
	logger := appName
	out.Logger = &logger
	out.Fields = append(out.Fields,
		model.Field{Key: "hostname", Value: hostname},
		model.Field{Key: "proc_id", Value: procID},
	)

	msg := fields[4]
	out.Message = &msg
	return out, nil
}

func parseRFC3164(out model.ParsedLog, rest string) (model.ParsedLog, error) {
	m := rfc3164Prefix.FindStringSubmatch(rest)
	if m == nil {
		msg := rest
		out.Message = &msg
		return out, nil
	}

	// Open question (spec §9): RFC3164 timestamps carry no year or timezone
	// and are deliberately left unparsed (Timestamp stays nil).
	host := m[6]
	tag := m[7]
	pid := m[8]
	msg := m[9]

	out.Logger = &tag
	out.Message = &msg
	out.Fields = append(out.Fields, model.Field{Key: "hostname", Value: host})
	if pid != "" {
		out.Fields = append(out.Fields, model.Field{Key: "proc_id", Value: pid})
	}
	out.Fields = append(out.Fields, model.Field{Key: "month_day", Value: fmt.Sprintf("%s %s %s:%s:%s", m[1], m[2], m[3], m[4], m[5])})

	return out, nil
}
