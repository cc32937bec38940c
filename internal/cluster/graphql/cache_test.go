package graphql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docktail/fleet/internal/shared/model"
)

func TestRequestCache_GetOrFetchDetailsCallsFetchOnceOnMiss(t *testing.T) {
	c := newRequestCache()
	calls := 0
	fetch := func() (*model.ContainerInfo, error) {
		calls++
		return &model.ContainerInfo{ID: "abc"}, nil
	}

	info, err := c.getOrFetchDetails("abc", fetch)
	require.NoError(t, err)
	require.Equal(t, "abc", info.ID)

	info2, err := c.getOrFetchDetails("abc", fetch)
	require.NoError(t, err)
	require.Same(t, info, info2)
	require.Equal(t, 1, calls)
}

func TestRequestCache_GetOrFetchDetailsCachesNilResult(t *testing.T) {
	c := newRequestCache()
	calls := 0
	fetch := func() (*model.ContainerInfo, error) {
		calls++
		return nil, nil
	}

	_, err := c.getOrFetchDetails("missing", fetch)
	require.NoError(t, err)
	_, err = c.getOrFetchDetails("missing", fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRequestCache_GetOrFetchDetailsDoesNotCacheOnError(t *testing.T) {
	c := newRequestCache()
	calls := 0
	fetch := func() (*model.ContainerInfo, error) {
		calls++
		return nil, assertErr{}
	}

	_, err := c.getOrFetchDetails("err", fetch)
	require.Error(t, err)
	_, err = c.getOrFetchDetails("err", fetch)
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestRequestCache_RememberAndLookupAgent(t *testing.T) {
	c := newRequestCache()
	_, ok := c.agentFor("abc")
	require.False(t, ok)

	c.rememberAgent("abc", "agent-1")
	agentID, ok := c.agentFor("abc")
	require.True(t, ok)
	require.Equal(t, "agent-1", agentID)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
