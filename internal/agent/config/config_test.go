package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTemp(t, `
bind_address: "0.0.0.0:9443"
inventory_sync_interval_secs: 2
multiline:
  enabled: true
  timeout_ms: 500
  max_lines: 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.InventorySyncIntervalSec)
	require.True(t, cfg.Multiline.Enabled)
}

func TestLoad_RejectsZeroSyncInterval(t *testing.T) {
	path := writeTemp(t, `inventory_sync_interval_secs: 0`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsEnabledMultilineWithoutTimeout(t *testing.T) {
	path := writeTemp(t, `
inventory_sync_interval_secs: 2
multiline:
  enabled: true
  max_lines: 10
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestResolve_PrecedenceChain(t *testing.T) {
	enabled := false
	timeout := 200
	cfg := &Config{
		InventorySyncIntervalSec: 2,
		Multiline: Multiline{
			Enabled:   true,
			TimeoutMs: 1000,
			MaxLines:  50,
			ContainerOverrides: map[string]ContainerOverride{
				"web": {Enabled: &enabled, TimeoutMs: &timeout},
			},
		},
	}

	resolved := cfg.Resolve("web", nil)
	require.False(t, resolved.Enabled)
	require.Equal(t, 200, resolved.TimeoutMs)
	require.Equal(t, 50, resolved.MaxLines, "max_lines falls through to base when no override")

	resolved = cfg.Resolve("web", map[string]string{"docktail.multiline.enabled": "true"})
	require.True(t, resolved.Enabled, "label overrides the per-container file override")
}

func TestResolve_InvalidLabelValueIgnored(t *testing.T) {
	cfg := &Config{InventorySyncIntervalSec: 2, Multiline: Multiline{Enabled: true, TimeoutMs: 100, MaxLines: 10}}
	resolved := cfg.Resolve("x", map[string]string{"docktail.multiline.max_lines": "not-a-number"})
	require.Equal(t, 10, resolved.MaxLines)
}

func TestLogFormatLabel(t *testing.T) {
	v, ok := LogFormatLabel(map[string]string{"docktail.log_format": "json"})
	require.True(t, ok)
	require.Equal(t, "json", v)

	_, ok = LogFormatLabel(nil)
	require.False(t, ok)
}
