package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilter_IncludeMode(t *testing.T) {
	f, err := New(`error`, ModeInclude)
	require.NoError(t, err)

	require.True(t, f.ShouldInclude([]byte("an error occurred")))
	require.False(t, f.ShouldInclude([]byte("all good")))

	stats := f.Stats()
	require.Equal(t, uint64(2), stats.LinesScanned)
	require.Equal(t, uint64(1), stats.LinesMatched)
}

func TestFilter_ExcludeMode(t *testing.T) {
	f, err := New(`healthcheck`, ModeExclude)
	require.NoError(t, err)

	require.False(t, f.ShouldInclude([]byte("GET /healthcheck 200")))
	require.True(t, f.ShouldInclude([]byte("GET /api/users 200")))

	stats := f.Stats()
	require.Equal(t, uint64(1), stats.LinesMatched, "matched counts regex hits regardless of mode")
}

func TestFilter_InvalidPatternRejected(t *testing.T) {
	_, err := New(`(unclosed`, ModeInclude)
	require.Error(t, err)
}

func TestFilter_BytesScannedAccumulates(t *testing.T) {
	f, err := New(`.*`, ModeInclude)
	require.NoError(t, err)
	f.ShouldInclude([]byte("12345"))
	f.ShouldInclude([]byte("123"))
	require.Equal(t, uint64(8), f.Stats().BytesScanned)
}
