package txgraph

import (
	"context"
	"sort"
	"testing"

	"github.com/dbhist/histcheck/internal/relset"
	"github.com/stretchr/testify/require"
)

func sortSCCs(sccs [][]Vertex) [][]Vertex {
	for _, scc := range sccs {
		sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
	}
	sort.Slice(sccs, func(i, j int) bool {
		if len(sccs[i]) == 0 || len(sccs[j]) == 0 {
			return len(sccs[i]) < len(sccs[j])
		}
		return sccs[i][0] < sccs[j][0]
	})
	return sccs
}

func TestSCCFindsTwoNodeCycle(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 1, relset.Of(relset.WW))
	g.AddVertex(3)

	sccs := sortSCCs(SCC(context.Background(), g))
	require.Len(t, sccs, 2)
	require.Equal(t, []Vertex{1, 2}, sccs[0])
	require.Equal(t, []Vertex{3}, sccs[1])
}

func TestSCCLinearChainIsAllSingletons(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 3, relset.Of(relset.WW))

	sccs := SCC(context.Background(), g)
	for _, scc := range sccs {
		require.Len(t, scc, 1)
	}
	require.Len(t, sccs, 3)
}

func TestSCCLargerCycleWithChord(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 3, relset.Of(relset.WW))
	g.AddEdge(3, 1, relset.Of(relset.WW))
	g.AddEdge(2, 4, relset.Of(relset.WR))
	g.AddEdge(4, 2, relset.Of(relset.RW))

	sccs := sortSCCs(SCC(context.Background(), g))
	require.Len(t, sccs, 1)
	require.Equal(t, []Vertex{1, 2, 3, 4}, sccs[0])
}

func TestSCCRespectsCancellation(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 1, relset.Of(relset.WW))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The important property under test is that an already-cancelled
	// context returns promptly instead of hanging or panicking.
	require.Len(t, SCC(ctx, g), 0)
}
