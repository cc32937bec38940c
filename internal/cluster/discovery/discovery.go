// Package discovery is the cluster's dynamic node discovery loop (C14):
// poll one healthy agent's node inventory, upsert pool entries for nodes
// carrying a configured label, and drop entries whose node lost it. The
// ticker-driven poll loop generalizes C9's inventory synchronizer
// (internal/agent/inventory) from "sync one runtime's containers" to "sync
// discovered nodes across the healthy agent set."
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/docktail/fleet/internal/cluster/pool"
	"github.com/docktail/fleet/internal/shared/rpcproto"
)

// Config is discovery's configuration envelope (spec §6's discovery.*).
type Config struct {
	Enabled              bool
	LabelKey             string
	LabelValue           string
	Interval             time.Duration
	AgentPort            string
	RegistrationEnabled  bool
	TLSCertPath          string
	TLSKeyPath           string
	TLSCAPath            string
}

// Discoverer runs the periodic poll described by spec §4.14.
type Discoverer struct {
	pool *pool.Pool
	cfg  Config
	log  *logrus.Entry
}

func New(p *pool.Pool, cfg Config, log *logrus.Entry) *Discoverer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Discoverer{pool: p, cfg: cfg, log: log}
}

// Run blocks, ticking Poll until ctx is cancelled. A no-op when discovery is
// disabled.
func (d *Discoverer) Run(ctx context.Context) {
	if !d.cfg.Enabled {
		return
	}
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll(ctx)
		}
	}
}

// Poll runs one discovery tick: list the chosen healthy agent's nodes,
// upsert pool entries for matching nodes, then remove previously-discovered
// agents whose node no longer carries the label.
func (d *Discoverer) Poll(ctx context.Context) {
	agentID, ok := d.pool.AnyHealthy()
	if !ok {
		d.log.Debug("discovery: no healthy agent available to poll list_nodes")
		return
	}
	client, ok := d.pool.Client(agentID)
	if !ok {
		return
	}

	resp, err := client.ListNodes(ctx, &rpcproto.ListNodesRequest{})
	if err != nil {
		d.log.WithError(err).WithField("via_agent", agentID).Warn("discovery: list_nodes failed")
		return
	}

	seen := make(map[string]bool, len(resp.Nodes))
	for _, node := range resp.Nodes {
		if node.Labels[d.cfg.LabelKey] != d.cfg.LabelValue {
			continue
		}
		dynID := "discovered-" + node.ID
		seen[dynID] = true
		if d.pool.Has(dynID) {
			continue
		}
		d.addNode(ctx, dynID, node)
	}

	d.pruneDropped(seen)
}

// resolveAgentAddress derives a dialable address from a discovered node:
// its addr with any port stripped, falling back to hostname, then appends
// the configured agent port (spec §4.14).
func resolveAgentAddress(node rpcproto.Node, agentPort string) (string, bool) {
	host := node.Addr
	if host == "" {
		host = node.Hostname
	}
	if host == "" {
		return "", false
	}
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return host + ":" + agentPort, true
}

func (d *Discoverer) addNode(ctx context.Context, dynID string, node rpcproto.Node) {
	addr, ok := resolveAgentAddress(node, d.cfg.AgentPort)
	if !ok {
		d.log.WithField("node", node.ID).Warn("discovery: node has neither addr nor hostname, skipping")
		return
	}

	if d.cfg.TLSCertPath == "" || d.cfg.TLSKeyPath == "" || d.cfg.TLSCAPath == "" {
		d.log.WithField("node", node.ID).Warn("discovery: no shared TLS credentials configured, skipping node")
		return
	}

	cfg := pool.AgentConfig{
		ID:          dynID,
		Address:     addr,
		TLSCertPath: d.cfg.TLSCertPath,
		TLSKeyPath:  d.cfg.TLSKeyPath,
		TLSCAPath:   d.cfg.TLSCAPath,
		ServerName:  node.Hostname,
	}
	if err := d.pool.Add(ctx, cfg, pool.SourceDiscovered); err != nil {
		d.log.WithError(err).WithField("node", node.ID).Warn("discovery: failed to add dynamic agent")
	}
}

// pruneDropped removes previously-discovered agents whose node no longer
// appeared with the label in this poll.
func (d *Discoverer) pruneDropped(seenThisPoll map[string]bool) {
	for _, id := range d.pool.IDs() {
		if !strings.HasPrefix(id, "discovered-") {
			continue
		}
		source, ok := d.pool.SourceOf(id)
		if !ok || source != pool.SourceDiscovered {
			continue
		}
		if !seenThisPoll[id] {
			d.pool.Remove(id)
		}
	}
}
