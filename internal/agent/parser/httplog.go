package parser

import (
	"regexp"
	"strconv"

	"github.com/docktail/fleet/internal/shared/model"
)

// clfPattern matches Common/Combined Log Format:
// host ident user [date] "METHOD PATH PROTO" status bytes ["referrer" "user-agent"]
var clfPattern = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([A-Z]+) (\S+) (\S+)" (\d{3}) (\S+)(?: "([^"]*)" "([^"]*)")?`)

// ParseHTTPLog implements the Common/Combined Log Format parser (C4). The
// derived log level follows the status code: 5xx -> error, 4xx -> warn,
// otherwise info.
func ParseHTTPLog(line []byte) (model.ParsedLog, error) {
	if len(line) > MaxLineSize {
		return model.ParsedLog{Raw: line}, &ParseError{Kind: ErrLineTooLarge, Msg: "line exceeds MaxLineSize"}
	}

	m := clfPattern.FindSubmatch(line)
	if m == nil {
		return model.ParsedLog{Raw: line}, newParseFailed("does not match Common/Combined Log Format")
	}

	host := string(m[1])
	method := string(m[5])
	path := string(m[6])
	statusStr := string(m[8])
	status, _ := strconv.Atoi(statusStr)

	level := "info"
	switch {
	case status >= 500:
		level = "error"
	case status >= 400:
		level = "warn"
	}

	req := &model.RequestContext{
		Method:     method,
		Path:       path,
		RemoteAddr: host,
		StatusCode: status,
		HasStatus:  true,
	}

	out := model.ParsedLog{
		Raw:     line,
		Level:   &level,
		Request: req,
	}

	out.Fields = append(out.Fields, model.Field{Key: "ident", Value: string(m[2])})
	out.Fields = append(out.Fields, model.Field{Key: "user", Value: string(m[3])})
	out.Fields = append(out.Fields, model.Field{Key: "date", Value: string(m[4])})
	out.Fields = append(out.Fields, model.Field{Key: "bytes", Value: string(m[9])})
	if len(m) > 10 && len(m[10]) > 0 {
		out.Fields = append(out.Fields, model.Field{Key: "referrer", Value: string(m[10])})
	}
	if len(m) > 11 && len(m[11]) > 0 {
		out.Fields = append(out.Fields, model.Field{Key: "user_agent", Value: string(m[11])})
	}

	return out, nil
}
