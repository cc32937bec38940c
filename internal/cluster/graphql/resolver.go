package graphql

import (
	"context"
	"sync"

	"github.com/docktail/fleet/internal/cluster/pool"
	"github.com/docktail/fleet/internal/shared/model"
	"github.com/docktail/fleet/internal/shared/rpcproto"
)

// ContainerEnvelope is one agent's answer (or error) in a fan-out over "all
// agents" queries (spec §4.15: "per-agent errors are captured into a result
// envelope but do not fail the overall query").
type ContainerEnvelope struct {
	AgentID   string
	Container *model.ContainerInfo
	Error     string
}

type AgentStatus struct {
	ID      string
	Address string
	Source  string
	Health  string
}

// Resolver holds what every query resolution needs: the pool to fan out
// across. One Resolver is shared by every request; resolvers build a fresh
// requestCache per call.
type Resolver struct {
	Pool *pool.Pool
}

// Containers implements Query.containers. With agentId set it queries just
// that agent; otherwise it dispatches to every pool connection in parallel,
// per spec §4.15.
func (r *Resolver) Containers(ctx context.Context, agentID *string) []ContainerEnvelope {
	cache := newRequestCache()

	if agentID != nil {
		return []ContainerEnvelope{r.listOneAgent(ctx, *agentID, cache)}
	}

	conns := r.Pool.Snapshot()
	results := make([]ContainerEnvelope, len(conns))
	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(i int, agentID string) {
			defer wg.Done()
			results[i] = r.listOneAgent(ctx, agentID, cache)
		}(i, c.ID)
	}
	wg.Wait()
	return results
}

func (r *Resolver) listOneAgent(ctx context.Context, agentID string, cache *requestCache) ContainerEnvelope {
	client, ok := r.Pool.Client(agentID)
	if !ok {
		return ContainerEnvelope{AgentID: agentID, Error: "agent not in pool"}
	}
	resp, err := client.ListContainers(ctx, &rpcproto.ListContainersRequest{All: true})
	if err != nil {
		return ContainerEnvelope{AgentID: agentID, Error: err.Error()}
	}
	if len(resp.Containers) > 0 {
		first := resp.Containers[0]
		cache.rememberAgent(first.ID, agentID)
		return ContainerEnvelope{AgentID: agentID, Container: &first}
	}
	return ContainerEnvelope{AgentID: agentID}
}

// ContainerDetails implements Query.containerDetails, checking the
// request-scoped cache before issuing a gRPC inspect_container (spec
// §4.15's "resolvers ... call the cache first and only issue ... on miss").
func (r *Resolver) ContainerDetails(ctx context.Context, cache *requestCache, containerID, agentID string) (*model.ContainerInfo, error) {
	return cache.getOrFetchDetails(containerID, func() (*model.ContainerInfo, error) {
		client, ok := r.Pool.Client(agentID)
		if !ok {
			return nil, nil
		}
		resp, err := client.InspectContainer(ctx, &rpcproto.InspectContainerRequest{ID: containerID})
		if err != nil {
			return nil, err
		}
		return &resp.Container, nil
	})
}

// Agents implements Query.agents: the pool's connection snapshot, health
// scored at read time (spec §4.13's "computed by iteration at read time").
func (r *Resolver) Agents(ctx context.Context) []AgentStatus {
	conns := r.Pool.Snapshot()
	out := make([]AgentStatus, 0, len(conns))
	for _, c := range conns {
		out = append(out, AgentStatus{
			ID:      c.ID,
			Address: c.Address,
			Source:  c.Source.String(),
			Health:  c.Health.String(),
		})
	}
	return out
}
