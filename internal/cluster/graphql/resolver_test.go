package graphql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docktail/fleet/internal/cluster/pool"
)

func TestResolver_AgentsOnEmptyPoolReturnsEmptySlice(t *testing.T) {
	r := &Resolver{Pool: pool.New(time.Second, 3, nil)}
	agents := r.Agents(context.Background())
	require.NotNil(t, agents)
	require.Empty(t, agents)
}

func TestResolver_ContainersForUnknownAgentReturnsErrorEnvelope(t *testing.T) {
	r := &Resolver{Pool: pool.New(time.Second, 3, nil)}
	agentID := "missing-agent"
	envelopes := r.Containers(context.Background(), &agentID)
	require.Len(t, envelopes, 1)
	require.Equal(t, "missing-agent", envelopes[0].AgentID)
	require.Equal(t, "agent not in pool", envelopes[0].Error)
	require.Nil(t, envelopes[0].Container)
}

func TestResolver_ContainersAllAgentsOnEmptyPoolReturnsEmpty(t *testing.T) {
	r := &Resolver{Pool: pool.New(time.Second, 3, nil)}
	envelopes := r.Containers(context.Background(), nil)
	require.Empty(t, envelopes)
}

func TestResolver_ContainerDetailsForUnknownAgentReturnsNil(t *testing.T) {
	r := &Resolver{Pool: pool.New(time.Second, 3, nil)}
	cache := newRequestCache()
	info, err := r.ContainerDetails(context.Background(), cache, "abc", "missing-agent")
	require.NoError(t, err)
	require.Nil(t, info)
}
