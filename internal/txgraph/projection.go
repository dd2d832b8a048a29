package txgraph

import "github.com/dbhist/histcheck/internal/relset"

// ProjectionCache memoizes Graph.Project calls over the lifetime of a
// single cycles()-style invocation (spec §3 Lifecycle), then is discarded.
// A warm-up pass precomputes every rel set an anomaly spec table is known
// to need before any wall-clock search timeout starts, because per Design
// Note 3, lazy materialization under a tight timeout tends to burn the
// budget on graph construction rather than searching.
//
// Thread Safety: NOT safe for concurrent use — one cache per SCC task
// (spec §5: "the projection cache is per-task (or per-SCC) and is never
// concurrently written by multiple threads").
type ProjectionCache struct {
	base  *Graph
	cache map[relset.Set]*Graph
}

// NewProjectionCache wraps base for memoized projection.
func NewProjectionCache(base *Graph) *ProjectionCache {
	return &ProjectionCache{
		base:  base,
		cache: make(map[relset.Set]*Graph),
	}
}

// Get returns the projection of the base graph onto rels, computing and
// memoizing it on first request.
func (c *ProjectionCache) Get(rels relset.Set) *Graph {
	if g, ok := c.cache[rels]; ok {
		return g
	}
	g := c.base.Project(rels)
	c.cache[rels] = g
	return g
}

// WarmUp precomputes projections for every rel set in sets, ahead of
// starting a search timeout clock.
func (c *ProjectionCache) WarmUp(sets []relset.Set) {
	for _, s := range sets {
		c.Get(s)
	}
}

// Base returns the underlying, unprojected graph.
func (c *ProjectionCache) Base() *Graph {
	return c.base
}
