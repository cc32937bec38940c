// Package pool is the cluster's agent pool (C13): an mTLS-authenticated
// connection supervisor with health scoring and exponential-backoff
// reconnect across a fleet of agent gRPC connections.
package pool

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/docktail/fleet/internal/shared/rpcproto"
)

// Source is where an AgentConnection came from.
type Source int

const (
	SourceStatic Source = iota
	SourceDiscovered
	SourceRegistered
)

func (s Source) String() string {
	switch s {
	case SourceDiscovered:
		return "discovered"
	case SourceRegistered:
		return "registered"
	default:
		return "static"
	}
}

// Health is an agent connection's health as scored by health_check_all.
type Health int32

const (
	HealthUnknown Health = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// AgentConfig is what add(config, source) needs to build a channel.
type AgentConfig struct {
	ID           string
	Address      string
	TLSCertPath  string
	TLSKeyPath   string
	TLSCAPath    string
	ServerName   string // SNI domain
}

// ConnectionInfo is a read-only snapshot of one pool entry.
type ConnectionInfo struct {
	ID       string
	Address  string
	Source   Source
	Health   Health
	LastSeen time.Time
}

// connection is one AgentConnection. The RPC client handle is guarded by a
// mutex used only for the lock->clone->drop pattern; health and last_seen
// are atomics so a slow RPC never blocks a health or status read.
type connection struct {
	id      string
	address string
	source  Source

	mu     sync.Mutex
	cc     *grpc.ClientConn
	client *rpcproto.AgentClient
	health *grpc_health_v1.HealthClient

	healthState atomic.Int32
	lastSeen    atomic.Int64 // unix nanos
	attempt     atomic.Int32
}

func (c *connection) snapshot() ConnectionInfo {
	return ConnectionInfo{
		ID:       c.id,
		Address:  c.address,
		Source:   c.source,
		Health:   Health(c.healthState.Load()),
		LastSeen: time.Unix(0, c.lastSeen.Load()),
	}
}

// clone returns the connection's current client handles under the mutex,
// so the caller can perform its network call without holding the lock.
func (c *connection) clone() (*rpcproto.AgentClient, grpc_health_v1.HealthClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client, *c.health
}

func (c *connection) install(cc *grpc.ClientConn, client *rpcproto.AgentClient, health grpc_health_v1.HealthClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.cc
	c.cc = cc
	c.client = client
	c.health = &health
	if old != nil {
		old.Close()
	}
}

// Pool owns every agent connection the cluster talks to.
type Pool struct {
	mu    sync.RWMutex
	conns map[string]*connection

	baseBackoff       time.Duration
	maxReconnect      int
	healthCheckTimeout time.Duration
	log               *logrus.Entry
}

func New(baseBackoff time.Duration, maxReconnectAttempts int, log *logrus.Entry) *Pool {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pool{
		conns:              make(map[string]*connection),
		baseBackoff:        baseBackoff,
		maxReconnect:       maxReconnectAttempts,
		healthCheckTimeout: 5 * time.Second,
		log:                log,
	}
}

func buildChannel(cfg AgentConfig) (*grpc.ClientConn, error) {
	creds, err := buildTransportCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(creds))
}

func buildTransportCredentials(cfg AgentConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client cert/key: %w", err)
	}

	caBytes, err := os.ReadFile(cfg.TLSCAPath)
	if err != nil {
		return nil, fmt.Errorf("read ca cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAPath)
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   cfg.ServerName,
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// Add builds an mTLS channel, performs an initial health check, and inserts
// the connection. Duplicate ids are a no-op.
func (p *Pool) Add(ctx context.Context, cfg AgentConfig, source Source) error {
	p.mu.Lock()
	if _, exists := p.conns[cfg.ID]; exists {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	cc, err := buildChannel(cfg)
	if err != nil {
		return fmt.Errorf("build channel for %s: %w", cfg.ID, err)
	}

	conn := &connection{id: cfg.ID, address: cfg.Address, source: source}
	healthClient := grpc_health_v1.NewHealthClient(cc)
	conn.install(cc, rpcproto.NewAgentClient(cc), healthClient)

	if err := p.checkOne(ctx, conn); err != nil {
		p.log.WithError(err).WithField("agent", cfg.ID).Warn("initial health check failed, adding as unknown")
	}

	p.mu.Lock()
	p.conns[cfg.ID] = conn
	p.mu.Unlock()
	return nil
}

// Remove drops a connection, closing its channel.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	conn, ok := p.conns[id]
	if ok {
		delete(p.conns, id)
	}
	p.mu.Unlock()
	if ok {
		conn.mu.Lock()
		if conn.cc != nil {
			conn.cc.Close()
		}
		conn.mu.Unlock()
	}
}

func (p *Pool) snapshotConns() []*connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*connection, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c)
	}
	return out
}

// checkOne performs one health RPC on the connection's cloned client handle
// and updates health + last_seen.
func (p *Pool) checkOne(ctx context.Context, conn *connection) error {
	_, healthClient := conn.clone()

	cctx, cancel := context.WithTimeout(ctx, p.healthCheckTimeout)
	defer cancel()

	resp, err := healthClient.Check(cctx, &grpc_health_v1.HealthCheckRequest{})
	conn.lastSeen.Store(time.Now().UnixNano())
	if err != nil {
		conn.healthState.Store(int32(HealthUnhealthy))
		return err
	}
	if resp.Status == grpc_health_v1.HealthCheckResponse_SERVING {
		conn.healthState.Store(int32(HealthHealthy))
	} else {
		conn.healthState.Store(int32(HealthDegraded))
	}
	return nil
}

// HealthCheckAll snapshots the map and launches one parallel health call per
// connection, each with its own dedicated 5s timeout. It returns the ids now
// Unhealthy.
func (p *Pool) HealthCheckAll(ctx context.Context) []string {
	conns := p.snapshotConns()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var unhealthy []string

	for _, c := range conns {
		wg.Add(1)
		go func(c *connection) {
			defer wg.Done()
			_ = p.checkOne(ctx, c)
			if Health(c.healthState.Load()) == HealthUnhealthy {
				mu.Lock()
				unhealthy = append(unhealthy, c.id)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return unhealthy
}

// specBackoff implements backoff.BackOff with a fixed doubling
// formula: base * 2^(n-1) capped at 60s, where n is the number of delays
// issued so far.
type specBackoff struct {
	base    time.Duration
	attempt int
}

func (b *specBackoff) NextBackOff() time.Duration {
	b.attempt++
	d := b.base << (b.attempt - 1)
	const maxBackoff = 60 * time.Second
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (b *specBackoff) Reset() { b.attempt = 0 }

// Reconnect retries building a fresh channel for a Static agent, using
// exponential backoff capped at 60s, up to max_reconnect_attempts. On the
// first attempt that passes a health call, the new channel replaces the
// existing slot in place. Discovered/Registered agents are skipped — they
// are re-added by discovery or their owner instead.
func (p *Pool) Reconnect(ctx context.Context, id string, cfg AgentConfig) error {
	p.mu.RLock()
	conn, ok := p.conns[id]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("reconnect: unknown agent %s", id)
	}
	if conn.source != SourceStatic {
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&specBackoff{base: p.baseBackoff}, uint64(p.maxReconnect-1)), ctx)

	return backoff.Retry(func() error {
		cc, err := buildChannel(cfg)
		if err != nil {
			return err
		}
		healthClient := grpc_health_v1.NewHealthClient(cc)
		probe := &connection{id: id, health: &healthClient}
		if err := p.checkOne(ctx, probe); err != nil {
			cc.Close()
			return err
		}
		conn.install(cc, rpcproto.NewAgentClient(cc), healthClient)
		conn.healthState.Store(probe.healthState.Load())
		conn.lastSeen.Store(probe.lastSeen.Load())
		return nil
	}, policy)
}

// Client returns the connection's current RPC client via lock->clone->drop.
func (p *Pool) Client(id string) (*rpcproto.AgentClient, bool) {
	p.mu.RLock()
	conn, ok := p.conns[id]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	client, _ := conn.clone()
	return client, true
}

// Snapshot returns every connection's current info.
func (p *Pool) Snapshot() []ConnectionInfo {
	conns := p.snapshotConns()
	out := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.snapshot())
	}
	return out
}

// Counts tallies connections by health, computed by iteration at read time.
func (p *Pool) Counts() (total, healthy, degraded, unhealthy, unknown int) {
	for _, c := range p.snapshotConns() {
		total++
		switch Health(c.healthState.Load()) {
		case HealthHealthy:
			healthy++
		case HealthDegraded:
			degraded++
		case HealthUnhealthy:
			unhealthy++
		default:
			unknown++
		}
	}
	return
}

// IDs returns the id of every connection in the pool (used by discovery's
// label-drop sweep).
func (p *Pool) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether id is already in the pool.
func (p *Pool) Has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.conns[id]
	return ok
}

// SourceOf reports a connection's source, used by discovery to only remove
// agents it itself added.
func (p *Pool) SourceOf(id string) (Source, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[id]
	if !ok {
		return 0, false
	}
	return c.source, true
}

// AnyHealthy returns one healthy connection's id, for discovery's list_nodes
// poll target. Returns "", false if none are healthy.
func (p *Pool) AnyHealthy() (string, bool) {
	for _, c := range p.snapshotConns() {
		if Health(c.healthState.Load()) == HealthHealthy {
			return c.id, true
		}
	}
	return "", false
}
