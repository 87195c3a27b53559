package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, env *Env) (*Result, error) {
	return OK(), nil
}

func testTable() *Table {
	return NewTable([]Command{
		{Verb: "stop", Handler: noopHandler},
		{Verb: "status", Handler: noopHandler},
		{Verb: "stats", Handler: noopHandler},
		{Verb: "stats_noreset", Handler: noopHandler},
	})
}

func TestTableLookupExactMatch(t *testing.T) {
	tbl := testTable()
	cmd, err := tbl.Lookup("stop")
	require.NoError(t, err)
	require.Equal(t, "stop", cmd.Verb)
}

func TestTableLookupUniquePrefix(t *testing.T) {
	tbl := testTable()
	cmd, err := tbl.Lookup("sto")
	require.NoError(t, err)
	require.Equal(t, "stop", cmd.Verb)
}

func TestTableLookupAmbiguousPrefix(t *testing.T) {
	tbl := testTable()
	_, err := tbl.Lookup("st")
	require.Error(t, err)
	var ambErr *ErrAmbiguous
	require.ErrorAs(t, err, &ambErr)
}

func TestTableLookupExactBeatsPrefix(t *testing.T) {
	tbl := testTable()
	cmd, err := tbl.Lookup("stats")
	require.NoError(t, err)
	require.Equal(t, "stats", cmd.Verb) // exact match wins over "stats_noreset" prefix overlap
}

func TestTableLookupUnknown(t *testing.T) {
	tbl := testTable()
	_, err := tbl.Lookup("frobnicate")
	require.Error(t, err)
	var unkErr *ErrUnknown
	require.ErrorAs(t, err, &unkErr)
}

func TestOKResult(t *testing.T) {
	require.Equal(t, []string{"ok"}, OK().Lines)
}

func TestLinesResult(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, Lines("a", "b").Lines)
}
