package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
)

var (
	levelKeys   = map[string]bool{"level": true, "lvl": true, "severity": true, "loglevel": true}
	messageKeys = map[string]bool{"message": true, "msg": true, "text": true, "log": true}
	loggerKeys  = map[string]bool{"logger": true, "name": true, "component": true, "service": true}
	timeKeys    = map[string]bool{"timestamp": true, "time": true, "ts": true, "@timestamp": true}

	requestKeys = map[string]bool{
		"method": true, "path": true, "remote_addr": true, "status_code": true,
		"duration_ms": true, "request_id": true,
	}
)

// ParseJSON implements the strict-object JSON format parser (C4). It
// extracts level/message/logger/timestamp via synonym lookup, folds
// request/error sub-objects into RequestContext/ErrorContext, re-serializes
// every other non-scalar value to a JSON string, and drops the consumed keys
// from Fields.
func ParseJSON(line []byte) (model.ParsedLog, error) {
	if len(line) > MaxLineSize {
		return model.ParsedLog{Raw: line}, &ParseError{Kind: ErrLineTooLarge, Msg: "line exceeds MaxLineSize"}
	}

	pairs, err := decodeOrderedObject(line)
	if err != nil {
		return model.ParsedLog{Raw: line}, newParseFailed(err.Error())
	}

	out := model.ParsedLog{Raw: line}
	req := &model.RequestContext{}
	hasReq := false
	errCtx := &model.ErrorContext{}
	hasErr := false

	for _, kv := range pairs {
		key := kv.key
		lower := strings.ToLower(key)

		switch {
		case levelKeys[lower]:
			v := scalarString(kv.raw)
			out.Level = &v
			continue
		case messageKeys[lower]:
			v := scalarString(kv.raw)
			out.Message = &v
			continue
		case loggerKeys[lower]:
			v := scalarString(kv.raw)
			out.Logger = &v
			continue
		case timeKeys[lower]:
			if t, ok := parseJSONTimestamp(kv.raw); ok {
				out.Timestamp = &t
			}
			continue
		}

		if lower == "request" {
			if obj, ok := asObject(kv.raw); ok {
				fillRequest(req, obj)
				hasReq = true
				continue
			}
		}
		if requestKeys[lower] {
			fillRequestField(req, lower, kv.raw)
			hasReq = true
			continue
		}

		if lower == "error" || lower == "exception" {
			if obj, ok := asObject(kv.raw); ok {
				fillError(errCtx, obj)
				hasErr = true
				continue
			}
		}
		if lower == "stack_trace" {
			if arr, ok := asStringArray(kv.raw); ok {
				errCtx.StackTrace = arr
				hasErr = true
				continue
			}
		}

		out.Fields = append(out.Fields, model.Field{Key: key, Value: valueToFieldString(kv.raw)})
	}

	if hasReq {
		out.Request = req
	}
	if hasErr {
		out.Error = errCtx
	}

	return out, nil
}

type orderedPair struct {
	key string
	raw json.RawMessage
}

// decodeOrderedObject walks a top-level JSON object preserving key order,
// which encoding/json's map decoding does not provide.
func decodeOrderedObject(line []byte) ([]orderedPair, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	var pairs []orderedPair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		pairs = append(pairs, orderedPair{key: key, raw: raw})
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}

	return pairs, nil
}

func isScalar(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return true
	}
	switch t[0] {
	case '{', '[':
		return false
	default:
		return true
	}
}

// scalarString renders a scalar JSON value (string/number/bool/null) as a
// plain Go string, unquoting JSON strings.
func scalarString(raw json.RawMessage) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return ""
	}
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return s
		}
	}
	return string(t)
}

// valueToFieldString converts any JSON value into the Fields representation:
// scalars render as plain strings, objects/arrays re-serialize to compact
// JSON strings.
func valueToFieldString(raw json.RawMessage) string {
	if isScalar(raw) {
		return scalarString(raw)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

func asStringArray(raw json.RawMessage) ([]string, bool) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

func fillRequest(req *model.RequestContext, obj map[string]json.RawMessage) {
	for k, v := range obj {
		fillRequestField(req, strings.ToLower(k), v)
	}
}

func fillRequestField(req *model.RequestContext, lower string, raw json.RawMessage) {
	switch lower {
	case "method":
		req.Method = scalarString(raw)
	case "path":
		req.Path = scalarString(raw)
	case "remote_addr":
		req.RemoteAddr = scalarString(raw)
	case "status_code":
		if n, ok := asInt(raw); ok {
			req.StatusCode = n
			req.HasStatus = true
		}
	case "duration_ms":
		if f, ok := asFloat(raw); ok {
			req.DurationMs = f
			req.HasDuration = true
		}
	case "request_id":
		req.RequestID = scalarString(raw)
	}
}

func fillError(e *model.ErrorContext, obj map[string]json.RawMessage) {
	for k, v := range obj {
		switch strings.ToLower(k) {
		case "type":
			e.Type = scalarString(v)
		case "message":
			e.Message = scalarString(v)
		case "stack_trace":
			if arr, ok := asStringArray(v); ok {
				e.StackTrace = arr
			}
		case "file":
			e.File = scalarString(v)
		case "line":
			if n, ok := asInt(v); ok {
				e.Line = n
				e.HasLine = true
			}
		}
	}
}

func asInt(raw json.RawMessage) (int, bool) {
	t := bytes.TrimSpace(raw)
	if n, err := strconv.Atoi(string(t)); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(t, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

func asFloat(raw json.RawMessage) (float64, bool) {
	t := bytes.TrimSpace(raw)
	if f, err := strconv.ParseFloat(string(t), 64); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(t, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// parseJSONTimestamp handles the three shapes allowed by spec §4.4: a
// numeric value interpreted as seconds (or milliseconds when > 10^12), or a
// string parsed as RFC3339 or as a numeric string.
func parseJSONTimestamp(raw json.RawMessage) (time.Time, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return time.Time{}, false
	}

	if t[0] != '"' {
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return numericTimestamp(f), true
		}
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(t, &s); err != nil {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return numericTimestamp(f), true
	}
	return time.Time{}, false
}

func numericTimestamp(f float64) time.Time {
	if f > 1e12 {
		// milliseconds
		return time.UnixMilli(int64(f))
	}
	return time.Unix(int64(f), 0)
}
