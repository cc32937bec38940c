package logformat

import (
	"testing"

	"github.com/docktail/fleet/internal/shared/model"
	"github.com/stretchr/testify/require"
)

func TestDetect_JSON(t *testing.T) {
	require.Equal(t, model.FormatJSON, Detect([]byte(`{"level":"info","msg":"ok"}`)))
}

func TestDetect_Logfmt(t *testing.T) {
	require.Equal(t, model.FormatLogfmt, Detect([]byte(`level=info msg=ok component=api`)))
}

func TestDetect_PlainText(t *testing.T) {
	require.Equal(t, model.FormatPlainText, Detect([]byte(`just a regular line`)))
}

func TestDetect_EmptyIsPlainText(t *testing.T) {
	require.Equal(t, model.FormatPlainText, Detect([]byte("   ")))
}

func TestFromLabel_KnownValues(t *testing.T) {
	for _, v := range []string{"plain", "plaintext", "plain_text", "text"} {
		require.Equal(t, model.FormatPlainText, FromLabel(v), v)
	}
	require.Equal(t, model.FormatJSON, FromLabel("json"))
	require.Equal(t, model.FormatLogfmt, FromLabel("logfmt"))
	require.Equal(t, model.FormatSyslog, FromLabel("syslog"))
}

func TestFromLabel_UnknownIsPlainText(t *testing.T) {
	require.Equal(t, model.FormatPlainText, FromLabel("garbage-value"))
}

func TestResolve_LabelWins(t *testing.T) {
	got := Resolve("json", true, model.FormatSyslog, true, []byte(`plain`))
	require.Equal(t, model.FormatJSON, got)
}

func TestResolve_CacheWinsOverHeuristic(t *testing.T) {
	got := Resolve("", false, model.FormatLogfmt, true, []byte(`{"a":1}`))
	require.Equal(t, model.FormatLogfmt, got)
}

func TestResolve_FallsBackToHeuristic(t *testing.T) {
	got := Resolve("", false, model.FormatUnknown, false, []byte(`{"a":1}`))
	require.Equal(t, model.FormatJSON, got)
}

func TestLogFormatOrdering(t *testing.T) {
	require.True(t, model.FormatJSON < model.FormatLogfmt)
	require.True(t, model.FormatLogfmt < model.FormatSyslog)
	require.True(t, model.FormatSyslog < model.FormatHTTPLog)
	require.True(t, model.FormatHTTPLog < model.FormatPlainText)
	require.True(t, model.FormatPlainText < model.FormatUnknown)
}

func TestDetectBatch_MajorityVote(t *testing.T) {
	samples := [][]byte{
		[]byte(`{"a":1}`),
		[]byte(`{"b":2}`),
		[]byte(`level=info msg=hi`),
	}
	require.Equal(t, model.FormatJSON, DetectBatch(samples))
}
