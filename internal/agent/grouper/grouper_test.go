package grouper

import (
	"testing"
	"time"

	"github.com/docktail/fleet/internal/shared/model"
	"github.com/stretchr/testify/require"
)

func entry(raw string, format model.LogFormat) model.NormalizedLogEntry {
	return model.NormalizedLogEntry{
		Format: format,
		Parsed: model.ParsedLog{Raw: []byte(raw)},
	}
}

func entryWithLevel(raw, level string) model.NormalizedLogEntry {
	e := entry(raw, model.FormatPlainText)
	e.Parsed.Level = &level
	return e
}

func TestGrouper_PassthroughForSelfContainedFormats(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 1000, MaxLines: 10})

	out := g.Process(entry(`{"msg":"a"}`, model.FormatJSON))
	require.Len(t, out, 1)
	require.False(t, out[0].IsGrouped)

	out = g.Process(entry(`{"msg":"b"}`, model.FormatJSON))
	require.Len(t, out, 1, "passthrough emits every line unbuffered")
}

func TestGrouper_StackTraceContinuation(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 100})

	require.Nil(t, g.Process(entryWithLevel("java.lang.NullPointerException", "error")))
	require.Nil(t, g.Process(entry("   at com.example.Foo.bar(Foo.java:10)", model.FormatPlainText)))
	out := g.Process(entry("   at com.example.Foo.baz(Foo.java:20)", model.FormatPlainText))
	require.Nil(t, out)

	flushed := g.Flush()
	require.NotNil(t, flushed)
	require.True(t, flushed.IsGrouped)
	require.Equal(t, 3, flushed.LineCount)
	require.Len(t, flushed.GroupedLines, 2)
}

func TestGrouper_GoroutinePanicAnchor(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 100})

	require.Nil(t, g.Process(entry("panic: runtime error: index out of range", model.FormatPlainText)))
	out := g.Process(entry("goroutine 1 [running]:", model.FormatPlainText))
	require.Nil(t, out)

	flushed := g.Flush()
	require.True(t, flushed.IsGrouped)
}

func TestGrouper_UnrelatedLineFlushesAndStartsNewGroup(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 100})

	require.Nil(t, g.Process(entry("first primary line", model.FormatPlainText)))
	out := g.Process(entry("second primary line", model.FormatPlainText))
	require.Len(t, out, 1)
	require.False(t, out[0].IsGrouped)
	require.Equal(t, "first primary line", string(out[0].Parsed.Raw))
}

func TestGrouper_MaxLinesTriggersFlush(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 3})

	require.Nil(t, g.Process(entryWithLevel("boom", "error")))
	require.Nil(t, g.Process(entry("   at a()", model.FormatPlainText)))
	out := g.Process(entry("   at b()", model.FormatPlainText))
	require.Len(t, out, 1, "third line fills the group to max_lines and forces a flush")
	require.Equal(t, 3, out[0].LineCount)
}

func TestGrouper_CheckTimeoutFlushesAgedGroup(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 50, MaxLines: 100})
	restore := now
	t0 := time.Now()
	now = func() time.Time { return t0 }
	defer func() { now = restore }()

	require.Nil(t, g.Process(entry("primary", model.FormatPlainText)))
	require.Nil(t, g.CheckTimeout(t0.Add(10*time.Millisecond)))

	flushed := g.CheckTimeout(t0.Add(100 * time.Millisecond))
	require.NotNil(t, flushed)
	require.Equal(t, "primary", string(flushed.Parsed.Raw))
}

func TestGrouper_RequireErrorAnchorSuppressesPlainIndent(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 100, RequireErrorAnchor: true})

	require.Nil(t, g.Process(entry("plain info line", model.FormatPlainText)))
	out := g.Process(entry("    indented but no error anchor", model.FormatPlainText))
	require.Len(t, out, 1, "indent alone must not group without an error anchor when required")
}

func TestGrouper_BulletContinuation(t *testing.T) {
	g := New(Config{Enabled: true, TimeoutMs: 5000, MaxLines: 100})

	require.Nil(t, g.Process(entry("task summary", model.FormatPlainText)))
	out := g.Process(entry("└ subtask detail", model.FormatPlainText))
	require.Nil(t, out)

	flushed := g.Flush()
	require.True(t, flushed.IsGrouped)
}
