package ansi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrip_NoEscape_ReturnsSameBackingArray(t *testing.T) {
	buf := []byte("plain text, nothing to see")
	out := Strip(buf)
	require.Same(t, &buf[0], &out[0])
}

func TestStrip_CSIColor(t *testing.T) {
	in := []byte("\x1b[32mgreen\x1b[0m text")
	out := Strip(in)
	require.Equal(t, "green text", string(out))
}

func TestStrip_OSCWithBEL(t *testing.T) {
	in := []byte("\x1b]0;window title\x07rest")
	out := Strip(in)
	require.Equal(t, "rest", string(out))
}

func TestStrip_OSCWithESCBackslash(t *testing.T) {
	in := []byte("\x1b]0;title\x1b\\rest")
	out := Strip(in)
	require.Equal(t, "rest", string(out))
}

func TestStrip_FeSequence(t *testing.T) {
	in := []byte("a\x1bMb")
	out := Strip(in)
	require.Equal(t, "ab", string(out))
}

func TestStrip_TrailingLoneEscDropped(t *testing.T) {
	in := []byte("hello\x1b")
	out := Strip(in)
	require.Equal(t, "hello", string(out))
}

func TestStrip_Idempotent(t *testing.T) {
	in := []byte("\x1b[1mbold\x1b[0m plain")
	once := Strip(in)
	twice := Strip(once)
	require.Equal(t, once, twice)
}

func TestContainsEscape(t *testing.T) {
	require.False(t, ContainsEscape([]byte("clean")))
	require.True(t, ContainsEscape([]byte("dir\x1b[0mty")))
}
