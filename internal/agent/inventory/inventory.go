// Package inventory implements the container inventory synchronizer (C9):
// a background mark-and-sweep loop that keeps a shared container cache
// fresh without requiring every reader to hit the runtime directly.
package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/shared/model"
)

const consecutiveFailuresWarnThreshold = 3

// Synchronizer owns the shared container cache for one agent.
type Synchronizer struct {
	rt       runtime.Runtime
	interval time.Duration
	timeout  time.Duration
	log      *logrus.Entry
	metrics  *metrics.Metrics

	mu         sync.RWMutex
	containers map[string]model.ContainerInfo

	consecutiveFailures atomic.Uint64
}

// New builds a Synchronizer. m may be nil if the caller doesn't want
// consecutive-failure counts exported.
func New(rt runtime.Runtime, interval, timeout time.Duration, log *logrus.Entry, m *metrics.Metrics) *Synchronizer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Synchronizer{
		rt:         rt,
		interval:   interval,
		timeout:    timeout,
		log:        log,
		metrics:    m,
		containers: make(map[string]model.ContainerInfo),
	}
}

// Run blocks, ticking Sync at interval until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Sync performs one mark-and-sweep pass (spec §4.9). The cache is never
// cleared between the upsert and sweep steps, so concurrent readers never
// observe an empty map mid-sync.
func (s *Synchronizer) Sync(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	containers, err := s.rt.ListContainers(tctx, true)
	if err != nil {
		failures := s.consecutiveFailures.Add(1)
		if s.metrics != nil {
			s.metrics.SetDockerFailures(failures)
		}
		if failures >= consecutiveFailuresWarnThreshold {
			s.log.WithError(err).WithField("consecutive_failures", failures).
				Warn("inventory sync failing repeatedly, serving stale cache")
		} else {
			s.log.WithError(err).Debug("inventory sync failed")
		}
		return
	}

	s.consecutiveFailures.Store(0)
	if s.metrics != nil {
		s.metrics.SetDockerFailures(0)
	}

	active := make(map[string]struct{}, len(containers))

	s.mu.Lock()
	for _, c := range containers {
		active[c.ID] = struct{}{}
		s.containers[c.ID] = c
	}
	for id := range s.containers {
		if _, ok := active[id]; !ok {
			delete(s.containers, id)
		}
	}
	s.mu.Unlock()
}

// Get returns the cached record for id, if present.
func (s *Synchronizer) Get(id string) (model.ContainerInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	return c, ok
}

// List returns a snapshot of every cached container.
func (s *Synchronizer) List() []model.ContainerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ContainerInfo, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, c)
	}
	return out
}

// ConsecutiveFailures reports the current streak of failed sync attempts.
func (s *Synchronizer) ConsecutiveFailures() uint64 {
	return s.consecutiveFailures.Load()
}
