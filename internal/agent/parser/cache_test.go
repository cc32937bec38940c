package parser

import (
	"testing"

	"github.com/docktail/fleet/internal/shared/model"
	"github.com/stretchr/testify/require"
)

func TestCache_SetFormat_FreshInsertIsEnabled(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	f, ok := c.GetFormat("a")
	require.True(t, ok)
	require.Equal(t, model.FormatJSON, f)
}

func TestCache_AntiThrash(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	c.Disable("a")
	c.SetFormat("a", model.FormatJSON) // same format: must NOT re-enable

	_, ok := c.GetFormat("a")
	require.False(t, ok, "anti-thrash rule violated: re-detecting the same format must not re-enable")
}

func TestCache_SetFormat_ChangedFormatReEnables(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	c.Disable("a")
	c.SetFormat("a", model.FormatLogfmt) // format changed: re-enable

	f, ok := c.GetFormat("a")
	require.True(t, ok)
	require.Equal(t, model.FormatLogfmt, f)
}

func TestCache_EnableDisable(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	c.Disable("a")
	_, ok := c.GetFormat("a")
	require.False(t, ok)

	c.Enable("a")
	f, ok := c.GetFormat("a")
	require.True(t, ok)
	require.Equal(t, model.FormatJSON, f)
}

func TestCache_Stats(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	c.SetFormat("b", model.FormatLogfmt)
	c.Disable("b")

	s := c.Stats()
	require.Equal(t, 2, s.Total)
	require.Equal(t, 1, s.Enabled)
	require.Equal(t, 1, s.Disabled)
}

func TestCache_Remove(t *testing.T) {
	c := NewCache()
	c.SetFormat("a", model.FormatJSON)
	c.Remove("a")
	_, ok := c.GetFormat("a")
	require.False(t, ok)
}
