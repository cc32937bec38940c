package graphql

import (
	"sync"

	"github.com/docktail/fleet/internal/shared/model"
)

// requestCache is a per-query scoped cache: container_id -> details,
// container_id -> agent_id. It lives only for the duration of one GraphQL
// request; resolvers check it before issuing an RPC so a query that
// references the same container more than once only fetches it once.
type requestCache struct {
	mu           sync.Mutex
	detailsByID  map[string]*model.ContainerInfo
	agentByID    map[string]string
}

func newRequestCache() *requestCache {
	return &requestCache{
		detailsByID: make(map[string]*model.ContainerInfo),
		agentByID:   make(map[string]string),
	}
}

// getOrFetchDetails returns the cached details for containerID, or calls
// fetch and caches the result (even a nil result, so a miss isn't retried
// within the same request).
func (c *requestCache) getOrFetchDetails(containerID string, fetch func() (*model.ContainerInfo, error)) (*model.ContainerInfo, error) {
	c.mu.Lock()
	if info, ok := c.detailsByID[containerID]; ok {
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	info, err := fetch()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.detailsByID[containerID] = info
	c.mu.Unlock()
	return info, nil
}

func (c *requestCache) rememberAgent(containerID, agentID string) {
	c.mu.Lock()
	c.agentByID[containerID] = agentID
	c.mu.Unlock()
}

func (c *requestCache) agentFor(containerID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.agentByID[containerID]
	return id, ok
}
