package logservice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docktail/fleet/internal/agent/grouper"
	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/docktail/fleet/internal/agent/parser"
	agentruntime "github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/shared/model"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

type fakeRuntime struct {
	info model.ContainerInfo
	logs string
	err  error
}

var _ agentruntime.Runtime = (*fakeRuntime)(nil)

func (f *fakeRuntime) ListContainers(ctx context.Context, all bool) ([]model.ContainerInfo, error) {
	return nil, nil
}
func (f *fakeRuntime) InspectContainer(ctx context.Context, id string) (model.ContainerInfo, error) {
	if f.err != nil {
		return model.ContainerInfo{}, f.err
	}
	return f.info, nil
}
func (f *fakeRuntime) ContainerLogs(ctx context.Context, id string, opts agentruntime.LogOptions) (io.ReadCloser, error) {
	return nopCloser{bytes.NewBufferString(f.logs)}, nil
}
func (f *fakeRuntime) ContainerStatsOneShot(ctx context.Context, id string) ([]byte, error) {
	return nil, nil
}
func (f *fakeRuntime) ContainerStatsStream(ctx context.Context, id string) (io.ReadCloser, error) {
	return nil, nil
}
func (f *fakeRuntime) Start(ctx context.Context, id string) error   { return nil }
func (f *fakeRuntime) Stop(ctx context.Context, id string) error    { return nil }
func (f *fakeRuntime) Restart(ctx context.Context, id string) error { return nil }
func (f *fakeRuntime) Pause(ctx context.Context, id string) error   { return nil }
func (f *fakeRuntime) Unpause(ctx context.Context, id string) error { return nil }
func (f *fakeRuntime) Remove(ctx context.Context, id string) error  { return nil }
func (f *fakeRuntime) Ping(ctx context.Context) error                { return nil }
func (f *fakeRuntime) Close() error                                   { return nil }

func noMultiline(string, map[string]string) grouper.Config {
	return grouper.Config{Enabled: false}
}

func TestStreamLogs_EmptyContainerIDRejected(t *testing.T) {
	o := New(&fakeRuntime{}, parser.NewCache(), metrics.New(), nil, noMultiline)
	err := o.StreamLogs(context.Background(), StreamLogsRequest{}, func(model.GroupedLogEntry) error { return nil })
	require.Error(t, err)
}

func TestStreamLogs_EmitsEachLine(t *testing.T) {
	rt := &fakeRuntime{
		info: model.ContainerInfo{Name: "web", LogDriver: "json-file"},
		logs: "2024-05-01T12:00:00.000000000Z {\"msg\":\"one\"}\n2024-05-01T12:00:01.000000000Z {\"msg\":\"two\"}\n",
	}
	o := New(rt, parser.NewCache(), metrics.New(), nil, noMultiline)

	var got []model.GroupedLogEntry
	err := o.StreamLogs(context.Background(), StreamLogsRequest{ContainerID: "c1"}, func(e model.GroupedLogEntry) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "one", *got[0].Parsed.Message)
	require.Equal(t, "two", *got[1].Parsed.Message)
	require.Equal(t, uint64(0), got[0].Sequence)
	require.Equal(t, uint64(1), got[1].Sequence)
}

func TestStreamLogs_SinceWithUnsupportedDriverFails(t *testing.T) {
	rt := &fakeRuntime{info: model.ContainerInfo{LogDriver: "syslog"}}
	o := New(rt, parser.NewCache(), metrics.New(), nil, noMultiline)

	since := int64(1000)
	err := o.StreamLogs(context.Background(), StreamLogsRequest{ContainerID: "c1", SinceSecs: &since}, func(model.GroupedLogEntry) error { return nil })
	require.Error(t, err)
}

func TestStreamLogs_FilterExcludesNonMatchingLines(t *testing.T) {
	rt := &fakeRuntime{
		info: model.ContainerInfo{LogDriver: "json-file"},
		logs: "first line\nsecond important line\n",
	}
	o := New(rt, parser.NewCache(), metrics.New(), nil, noMultiline)

	var got []model.GroupedLogEntry
	err := o.StreamLogs(context.Background(), StreamLogsRequest{ContainerID: "c1", Pattern: "important"}, func(e model.GroupedLogEntry) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, string(got[0].Parsed.Raw), "important")
}

func TestStreamLogs_InvalidFilterPattern(t *testing.T) {
	o := New(&fakeRuntime{}, parser.NewCache(), metrics.New(), nil, noMultiline)
	err := o.StreamLogs(context.Background(), StreamLogsRequest{ContainerID: "c1", Pattern: "(unclosed"}, func(model.GroupedLogEntry) error { return nil })
	require.Error(t, err)
}

func TestStreamLogs_ContextCancellationStopsPump(t *testing.T) {
	rt := &fakeRuntime{info: model.ContainerInfo{LogDriver: "json-file"}, logs: ""}
	o := New(rt, parser.NewCache(), metrics.New(), nil, noMultiline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.StreamLogs(ctx, StreamLogsRequest{ContainerID: "c1"}, func(model.GroupedLogEntry) error { return nil })
	require.True(t, errors.Is(err, context.Canceled) || err == nil)
	_ = time.Millisecond
}
