package logdecode

import (
	"testing"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestDecode_WithTimestampPrefix(t *testing.T) {
	line := "2024-05-01T12:00:00.123456789Z hello world"
	ts, content := Decode([]byte(line), fixedNow)

	want, err := time.Parse(time.RFC3339Nano, "2024-05-01T12:00:00.123456789Z")
	require.NoError(t, err)
	require.Equal(t, want.UnixNano(), ts)
	require.Equal(t, "hello world", string(content))
}

func TestDecode_NoTimestamp(t *testing.T) {
	line := "just a plain line"
	ts, content := Decode([]byte(line), fixedNow)

	require.Equal(t, fixedNow().UnixNano(), ts)
	require.Equal(t, line, string(content))
}

func TestDecode_Empty(t *testing.T) {
	ts, content := Decode(nil, fixedNow)
	require.Equal(t, fixedNow().UnixNano(), ts)
	require.Empty(t, content)
}

func TestDecode_ZeroCopyContent(t *testing.T) {
	buf := []byte("2024-05-01T12:00:00Z payload")
	_, content := Decode(buf, fixedNow)
	// content must be a slice of the original backing array, not a copy.
	require.Same(t, &buf[len(buf)-len(content)], &content[0])
}

func TestDecodeLine_SetsStream(t *testing.T) {
	l := DecodeLine([]byte("2024-05-01T12:00:00Z oops"), model.StreamStderr, fixedNow)
	require.Equal(t, model.StreamStderr, l.Stream)
	require.Equal(t, "oops", string(l.Content))
}
