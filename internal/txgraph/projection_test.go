package txgraph

import (
	"testing"

	"github.com/dbhist/histcheck/internal/relset"
	"github.com/stretchr/testify/require"
)

func TestProjectKeepsOnlySubsetEdges(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	g.AddEdge(2, 3, relset.Of(relset.WW, relset.RW))
	g.AddEdge(3, 1, relset.Of(relset.WR))

	proj := g.Project(relset.Of(relset.WW))

	_, ok := proj.EdgeLabel(1, 2)
	require.True(t, ok, "ww edge must survive projection onto {ww}")

	_, ok = proj.EdgeLabel(2, 3)
	require.False(t, ok, "edge labeled {ww,rw} is not a subset of {ww} and must not survive")

	_, ok = proj.EdgeLabel(3, 1)
	require.False(t, ok)

	// Vertex set is preserved even when edges are dropped.
	require.ElementsMatch(t, []Vertex{1, 2, 3}, proj.Vertices())
}

func TestProjectAllKeepsEveryEdge(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW, relset.RW, relset.Process, relset.Realtime, relset.WR))
	proj := g.Project(relset.All)
	_, ok := proj.EdgeLabel(1, 2)
	require.True(t, ok)
}

func TestProjectionCacheMemoizes(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	cache := NewProjectionCache(g)

	p1 := cache.Get(relset.Of(relset.WW))
	p2 := cache.Get(relset.Of(relset.WW))
	require.Same(t, p1, p2, "second Get for the same rel set must return the memoized graph")

	p3 := cache.Get(relset.Of(relset.WR))
	require.NotSame(t, p1, p3)
}

func TestProjectionCacheWarmUp(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, relset.Of(relset.WW))
	cache := NewProjectionCache(g)

	sets := []relset.Set{relset.Of(relset.WW), relset.Of(relset.RW)}
	cache.WarmUp(sets)

	for _, s := range sets {
		_, ok := cache.cache[s]
		require.True(t, ok)
	}
}
