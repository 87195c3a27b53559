package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeSwapRootIsAtomic(t *testing.T) {
	tree := NewTree[ForwardZone]()
	tree.SwapRoot(map[string]ForwardZone{
		"example.com.": {Zone: "example.com.", Servers: []string{"203.0.113.1"}},
	})

	v, ok := tree.Get("EXAMPLE.COM.")
	require.True(t, ok)
	require.Equal(t, []string{"203.0.113.1"}, v.Servers)
	require.Equal(t, 1, tree.Len())
}

func TestTreeSwapRootReturnsPrevious(t *testing.T) {
	tree := NewTree[StubZone]()
	tree.SwapRoot(map[string]StubZone{"old.example.": {Zone: "old.example."}})

	old := tree.SwapRoot(map[string]StubZone{"new.example.": {Zone: "new.example."}})
	require.Len(t, old, 1)
	_, hasOld := old["old.example."]
	require.True(t, hasOld)

	_, stillThere := tree.Get("old.example.")
	require.False(t, stillThere)
}

func TestTreePutAndDelete(t *testing.T) {
	tree := NewTree[LocalZone]()
	tree.Put("Example.Com.", LocalZone{Name: "example.com.", Type: "static"})

	v, ok := tree.Get("example.com.")
	require.True(t, ok)
	require.Equal(t, "static", v.Type)

	require.True(t, tree.Delete("EXAMPLE.COM."))
	require.False(t, tree.Delete("example.com."))
	_, ok = tree.Get("example.com.")
	require.False(t, ok)
}
