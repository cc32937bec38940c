// Package logdecode implements the log-line decoder (C1): it splits a raw
// Docker log frame into a timestamp and the remaining payload, without
// decoding the payload as UTF-8.
package logdecode

import (
	"time"

	"github.com/docktail/fleet/internal/shared/model"
)

// Decode splits buf into (timestamp_nanos, content). When the runtime is
// asked for timestamps every frame begins with "RFC3339Nano SP ...". If the
// prefix up to the first space parses as RFC3339(Nano), its epoch-nanos is
// used and content is the remainder, sliced without copying. Otherwise the
// timestamp is now() and content is the full buffer.
func Decode(buf []byte, now func() time.Time) (int64, []byte) {
	if now == nil {
		now = time.Now
	}
	if len(buf) == 0 {
		return now().UnixNano(), buf
	}

	idx := -1
	for i, b := range buf {
		if b == ' ' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return now().UnixNano(), buf
	}

	prefix := buf[:idx]
	ts, err := time.Parse(time.RFC3339Nano, string(prefix))
	if err != nil {
		return now().UnixNano(), buf
	}

	return ts.UnixNano(), buf[idx+1:]
}

// DecodeLine is the same operation wrapped as a model.LogLine for a given
// stream.
func DecodeLine(buf []byte, stream model.Stream, now func() time.Time) model.LogLine {
	ts, content := Decode(buf, now)
	return model.LogLine{
		TimestampNanos: ts,
		Stream:         stream,
		Content:        content,
	}
}
