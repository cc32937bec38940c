package inventory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docktail/fleet/internal/agent/metrics"
	agentruntime "github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/shared/model"
)

type fakeRuntime struct {
	containers []model.ContainerInfo
	err        error
}

var _ agentruntime.Runtime = (*fakeRuntime)(nil)

func (f *fakeRuntime) ListContainers(ctx context.Context, all bool) ([]model.ContainerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.containers, nil
}
func (f *fakeRuntime) InspectContainer(ctx context.Context, id string) (model.ContainerInfo, error) {
	panic("not used")
}
func (f *fakeRuntime) ContainerLogs(ctx context.Context, id string, opts agentruntime.LogOptions) (io.ReadCloser, error) {
	panic("not used")
}
func (f *fakeRuntime) ContainerStatsOneShot(ctx context.Context, id string) ([]byte, error) {
	panic("not used")
}
func (f *fakeRuntime) ContainerStatsStream(ctx context.Context, id string) (io.ReadCloser, error) {
	panic("not used")
}
func (f *fakeRuntime) Start(ctx context.Context, id string) error   { return nil }
func (f *fakeRuntime) Stop(ctx context.Context, id string) error    { return nil }
func (f *fakeRuntime) Restart(ctx context.Context, id string) error { return nil }
func (f *fakeRuntime) Pause(ctx context.Context, id string) error   { return nil }
func (f *fakeRuntime) Unpause(ctx context.Context, id string) error { return nil }
func (f *fakeRuntime) Remove(ctx context.Context, id string) error  { return nil }
func (f *fakeRuntime) Ping(ctx context.Context) error               { return nil }
func (f *fakeRuntime) Close() error                                 { return nil }

func TestSynchronizer_UpsertsAndSweeps(t *testing.T) {
	rt := &fakeRuntime{containers: []model.ContainerInfo{{ID: "a"}, {ID: "b"}}}
	s := New(rt, time.Second, time.Second, nil, nil)

	s.Sync(context.Background())
	require.Len(t, s.List(), 2)

	rt.containers = []model.ContainerInfo{{ID: "a"}}
	s.Sync(context.Background())

	list := s.List()
	require.Len(t, list, 1)
	require.Equal(t, "a", list[0].ID)
}

func TestSynchronizer_FailureKeepsStaleCache(t *testing.T) {
	rt := &fakeRuntime{containers: []model.ContainerInfo{{ID: "a"}}}
	s := New(rt, time.Second, time.Second, nil, nil)
	s.Sync(context.Background())
	require.Len(t, s.List(), 1)

	rt.err = errors.New("daemon unreachable")
	s.Sync(context.Background())

	require.Len(t, s.List(), 1, "cache must not be cleared on failure")
	require.Equal(t, uint64(1), s.ConsecutiveFailures())
}

func TestSynchronizer_WarningThresholdReportedToMetrics(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("down")}
	m := metrics.New()
	s := New(rt, time.Second, time.Second, nil, m)

	for i := 0; i < 3; i++ {
		s.Sync(context.Background())
	}

	require.Equal(t, uint64(3), s.ConsecutiveFailures())
	require.Equal(t, uint64(3), m.Snapshot().DockerConsecutiveFailures)
}

func TestSynchronizer_RecoveryResetsCounter(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("down")}
	s := New(rt, time.Second, time.Second, nil, nil)
	s.Sync(context.Background())
	require.Equal(t, uint64(1), s.ConsecutiveFailures())

	rt.err = nil
	rt.containers = []model.ContainerInfo{{ID: "x"}}
	s.Sync(context.Background())
	require.Equal(t, uint64(0), s.ConsecutiveFailures())
}
