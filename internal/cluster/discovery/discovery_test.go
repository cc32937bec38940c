package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docktail/fleet/internal/shared/rpcproto"
)

func TestResolveAgentAddress_StripsPortFromAddr(t *testing.T) {
	addr, ok := resolveAgentAddress(rpcproto.Node{Addr: "10.0.0.5:2377"}, "9443")
	require.True(t, ok)
	require.Equal(t, "10.0.0.5:9443", addr)
}

func TestResolveAgentAddress_FallsBackToHostname(t *testing.T) {
	addr, ok := resolveAgentAddress(rpcproto.Node{Hostname: "node-a"}, "9443")
	require.True(t, ok)
	require.Equal(t, "node-a:9443", addr)
}

func TestResolveAgentAddress_NeitherPresentFails(t *testing.T) {
	_, ok := resolveAgentAddress(rpcproto.Node{}, "9443")
	require.False(t, ok)
}

func TestNew_DefaultsIntervalTo30s(t *testing.T) {
	d := New(nil, Config{Enabled: true}, nil)
	require.Equal(t, "30s", d.cfg.Interval.String())
}
