package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeshTrackSettle(t *testing.T) {
	m := NewMesh()
	m.Track("example.com.")
	m.Track("example.com.")
	require.Equal(t, 2, m.InFlight("example.com."))

	m.Settle("example.com.")
	require.Equal(t, 1, m.InFlight("example.com."))
}

func TestMeshDropClearsState(t *testing.T) {
	m := NewMesh()
	m.Track("stuck.example.")
	m.Track("stuck.example.")
	m.Track("other.example.")

	n := m.Drop("stuck.example.")
	require.Equal(t, 2, n)
	require.Equal(t, 0, m.InFlight("stuck.example."))
	require.Equal(t, 1, m.Total())
}
