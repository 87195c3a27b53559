package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	verb, args := splitCommand("local_zone example.com. static")
	require.Equal(t, "local_zone", verb)
	require.Equal(t, "example.com. static", args)
}

func TestSplitCommandNoArgs(t *testing.T) {
	verb, args := splitCommand("status")
	require.Equal(t, "status", verb)
	require.Equal(t, "", args)
}

func TestSplitCommandTrimsWhitespace(t *testing.T) {
	verb, args := splitCommand("  stop  \t")
	require.Equal(t, "stop", verb)
	require.Equal(t, "", args)
}

func TestSplitArgs(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitArgs("a  b\tc"))
	require.Nil(t, splitArgs(""))
}
