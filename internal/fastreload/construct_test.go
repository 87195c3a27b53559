package fastreload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talvera/resolverd/internal/config"
)

func TestBuildConstructPopulatesAllTables(t *testing.T) {
	cfg := &config.Config{
		Views: []config.ViewConfig{
			{Name: "internal", LocalZones: []config.LocalZoneConfig{{Name: "corp.", Type: "static", Data: []string{"a"}}}},
		},
		Forwards: []config.ForwardZoneConfig{
			{Zone: "example.com.", Servers: []string{"1.1.1.1"}},
		},
		Stubs: []config.StubZoneConfig{
			{Zone: "internal.example.com.", Servers: []string{"10.0.0.1"}, Prime: true},
		},
		Locals: []config.LocalZoneConfig{
			{Name: "block.example.", Type: "deny"},
		},
	}

	nc := BuildConstruct(cfg)

	require.Contains(t, nc.Views, "internal")
	require.Contains(t, nc.Views["internal"].LocalZones, "corp.")
	require.Contains(t, nc.Forwards, "example.com.")
	require.Equal(t, []string{"1.1.1.1"}, nc.Forwards["example.com."].Servers)
	require.Contains(t, nc.Stubs, "internal.example.com.")
	require.True(t, nc.Stubs["internal.example.com."].Prime)
	require.Contains(t, nc.Locals, "block.example.")
}

func TestEstimateBytesGrowsWithContent(t *testing.T) {
	empty := BuildConstruct(&config.Config{})
	full := BuildConstruct(&config.Config{
		Forwards: []config.ForwardZoneConfig{
			{Zone: "example.com.", Servers: []string{"1.1.1.1", "8.8.8.8"}},
		},
	})

	require.Greater(t, full.EstimateBytes(), empty.EstimateBytes())
}
