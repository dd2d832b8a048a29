package search

import (
	"context"
	"testing"

	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/txgraph"
	"github.com/stretchr/testify/require"
)

func TestFindCycleTrivialTwoCycle(t *testing.T) {
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 1, relset.Of(relset.WW))

	cyc, ok := FindCycle(context.Background(), g)
	require.True(t, ok)
	require.Len(t, cyc, 2)
	require.ElementsMatch(t, []txgraph.Vertex{1, 2}, cyc.Vertices())
}

func TestFindCycleAcyclicReturnsFalse(t *testing.T) {
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 3, relset.Of(relset.WW))

	_, ok := FindCycle(context.Background(), g)
	require.False(t, ok)
}

func TestFindCycleStartingWithRequiresFirstEdgeFromGFirst(t *testing.T) {
	// 1 -rw-> 2 -ww-> 3 -wr-> 1: a G-single-style cycle with exactly one
	// rw edge as the sole member of gFirst.
	full := txgraph.New()
	full.AddEdge(1, 2, relset.Of(relset.RW))
	full.AddEdge(2, 3, relset.Of(relset.WW))
	full.AddEdge(3, 1, relset.Of(relset.WR))

	gFirst := full.Project(relset.Of(relset.RW))
	gRest := full.Project(relset.Of(relset.WW, relset.WR))

	cyc, ok := FindCycleStartingWith(context.Background(), gFirst, gRest)
	require.True(t, ok)
	require.Len(t, cyc, 3)
	require.Equal(t, relset.Of(relset.RW), cyc[0].Label)
}

func TestFindCycleStartingWithNoMatchReturnsFalse(t *testing.T) {
	full := txgraph.New()
	full.AddEdge(1, 2, relset.Of(relset.WW))
	full.AddEdge(2, 1, relset.Of(relset.WW))

	gFirst := full.Project(relset.Of(relset.RW)) // empty: no rw edges at all
	gRest := full.Project(relset.Of(relset.WW))

	_, ok := FindCycleStartingWith(context.Background(), gFirst, gRest)
	require.False(t, ok)
}

func TestFindCycleWithNonadjacentRejectsWrapAdjacency(t *testing.T) {
	// A 2-cycle where both edges are rw: nonadjacent({rw}) must reject it,
	// since the wrap edge (edge 1 -> edge 0) is also rw-adjacent.
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.RW))
	g.AddEdge(2, 1, relset.Of(relset.RW))

	trans := NonadjacentTransition{R: relset.Of(relset.RW)}
	_, ok := FindCycleWith(context.Background(), g, trans, nil)
	require.False(t, ok, "two adjacent rw edges sharing the wrap must be rejected by nonadjacent(rw)")
}

func TestFindCycleWithNonadjacentAcceptsAlternatingCycle(t *testing.T) {
	// 1 -rw-> 2 -ww-> 3 -rw-> 4 -ww-> 1: rw edges are never adjacent,
	// including across the wrap (edge3 ww, edge0 rw).
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.RW))
	g.AddEdge(2, 3, relset.Of(relset.WW))
	g.AddEdge(3, 4, relset.Of(relset.RW))
	g.AddEdge(4, 1, relset.Of(relset.WW))

	trans := NonadjacentTransition{R: relset.Of(relset.RW)}
	cyc, ok := FindCycleWith(context.Background(), g, trans, Multiple(relset.Of(relset.RW)))
	require.True(t, ok)
	require.Len(t, cyc, 4)
}

func TestFindCycleWithRequiredRejectsCycleMissingRel(t *testing.T) {
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 1, relset.Of(relset.WW))

	_, ok := FindCycleWith(context.Background(), g, TrivialTransition{}, Required(relset.Of(relset.RW)))
	require.False(t, ok, "cycle has no rw edge so required(rw) must reject it")
}

func TestFindCycleRespectsCancellation(t *testing.T) {
	g := txgraph.New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 1, relset.Of(relset.WW))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := FindCycle(ctx, g)
	require.False(t, ok)

	_, ok = FindCycleWith(ctx, g, TrivialTransition{}, nil)
	require.False(t, ok)
}
