package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpecBackoff_ExponentialCappedAt60s(t *testing.T) {
	b := &specBackoff{base: time.Second}
	require.Equal(t, time.Second, b.NextBackOff())
	require.Equal(t, 2*time.Second, b.NextBackOff())
	require.Equal(t, 4*time.Second, b.NextBackOff())

	b2 := &specBackoff{base: time.Second}
	for i := 0; i < 10; i++ {
		b2.NextBackOff()
	}
	require.Equal(t, 60*time.Second, b2.NextBackOff())
}

func newTestPool() (*Pool, func(id string, h Health)) {
	p := New(time.Millisecond, 3, nil)
	insert := func(id string, h Health) {
		c := &connection{id: id, address: id + ":443", source: SourceStatic}
		c.healthState.Store(int32(h))
		p.conns[id] = c
	}
	return p, insert
}

func TestPool_CountsComputedByIteration(t *testing.T) {
	p, insert := newTestPool()
	insert("a", HealthHealthy)
	insert("b", HealthHealthy)
	insert("c", HealthDegraded)
	insert("d", HealthUnhealthy)
	insert("e", HealthUnknown)

	total, healthy, degraded, unhealthy, unknown := p.Counts()
	require.Equal(t, 5, total)
	require.Equal(t, 2, healthy)
	require.Equal(t, 1, degraded)
	require.Equal(t, 1, unhealthy)
	require.Equal(t, 1, unknown)
}

func TestPool_AnyHealthyReturnsHealthyID(t *testing.T) {
	p, insert := newTestPool()
	insert("a", HealthUnhealthy)
	insert("b", HealthHealthy)

	id, ok := p.AnyHealthy()
	require.True(t, ok)
	require.Equal(t, "b", id)
}

func TestPool_AnyHealthyFalseWhenNoneHealthy(t *testing.T) {
	p, insert := newTestPool()
	insert("a", HealthUnhealthy)

	_, ok := p.AnyHealthy()
	require.False(t, ok)
}

func TestPool_RemoveDropsConnection(t *testing.T) {
	p, insert := newTestPool()
	insert("a", HealthHealthy)
	require.True(t, p.Has("a"))

	p.Remove("a")
	require.False(t, p.Has("a"))
}

func TestPool_ReconnectSkipsNonStaticSource(t *testing.T) {
	p := New(time.Millisecond, 3, nil)
	c := &connection{id: "discovered-x", source: SourceDiscovered}
	p.conns["discovered-x"] = c

	err := p.Reconnect(context.Background(), "discovered-x", AgentConfig{ID: "discovered-x"})
	require.NoError(t, err, "non-static sources are a no-op, not an error")
}

func TestPool_ReconnectUnknownIDErrors(t *testing.T) {
	p := New(time.Millisecond, 3, nil)
	err := p.Reconnect(context.Background(), "missing", AgentConfig{})
	require.Error(t, err)
}
