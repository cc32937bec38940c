package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogfmt_Basic(t *testing.T) {
	out, err := ParseLogfmt([]byte(`level=info msg=hello component=api count=3`))
	require.NoError(t, err)
	require.NotNil(t, out.Level)
	require.Equal(t, "info", *out.Level)
	require.NotNil(t, out.Message)
	require.Equal(t, "hello", *out.Message)

	var found bool
	for _, f := range out.Fields {
		if f.Key == "count" && f.Value == "3" {
			found = true
		}
	}
	require.True(t, found)
}

func TestParseLogfmt_QuotedValueWithEscaping(t *testing.T) {
	out, err := ParseLogfmt([]byte(`msg="hello \"world\"" level=warn`))
	require.NoError(t, err)
	require.Equal(t, `hello "world"`, *out.Message)
	require.Equal(t, "warn", *out.Level)
}

func TestParseLogfmt_GarbageTokenSkipped(t *testing.T) {
	out, err := ParseLogfmt([]byte(`@@@garbage level=info`))
	require.NoError(t, err)
	require.Equal(t, "info", *out.Level)
}

func TestParseLogfmt_TracingStyle(t *testing.T) {
	out, err := ParseLogfmt([]byte(`2024-05-01T12:00:00Z INFO my::module: starting up`))
	require.NoError(t, err)
	require.Equal(t, "INFO", *out.Level)
	require.Equal(t, "my::module", *out.Logger)
	require.Equal(t, "starting up", *out.Message)
}
