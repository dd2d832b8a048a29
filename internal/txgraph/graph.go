// Package txgraph implements the multi-relational dependency graph over
// transactions described in spec §3: directed, every edge carries a
// relset.Set label, and it must support vertex enumeration, successor
// lookup, SCC decomposition, induced subgraphs, and rel-set projection.
//
// Construction of the graph from a raw history is out of scope (spec §1,
// §6 Analyzer contract) — this package only stores and queries a graph
// that has already been built.
package txgraph

import (
	"sort"

	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/relset"
)

// Vertex identifies a transaction in the graph.
type Vertex = history.TxnID

// VertexSet is an unordered collection of vertices, e.g. one strongly
// connected component.
type VertexSet = []Vertex

// Edge is one directed graph edge with its relation label.
type Edge struct {
	To    Vertex
	Label relset.Set
}

// Graph is an immutable-after-construction, directed, multi-relational
// graph. The zero value is not usable; use New.
//
// Thread Safety: a *Graph is safe for concurrent reads once construction
// (AddVertex/AddEdge) has finished. It is never mutated by SCC tasks.
type Graph struct {
	order int64 // next insertion order, for deterministic Vertices()
	verts map[Vertex]int64
	adj   map[Vertex]map[Vertex]relset.Set // from -> to -> label (union of all edges from->to)
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		verts: make(map[Vertex]int64),
		adj:   make(map[Vertex]map[Vertex]relset.Set),
	}
}

// AddVertex registers v if not already present. Idempotent.
func (g *Graph) AddVertex(v Vertex) {
	if _, ok := g.verts[v]; ok {
		return
	}
	g.verts[v] = g.order
	g.order++
	if _, ok := g.adj[v]; !ok {
		g.adj[v] = make(map[Vertex]relset.Set)
	}
}

// AddEdge adds a directed edge from -> to labeled with rels. If an edge
// already exists between the same pair, the labels are unioned — per
// spec §3, "a single graph edge may carry multiple labels simultaneously".
func (g *Graph) AddEdge(from, to Vertex, rels relset.Set) {
	g.AddVertex(from)
	g.AddVertex(to)
	g.adj[from][to] = g.adj[from][to].Union(rels)
}

// HasVertex reports whether v is in the graph.
func (g *Graph) HasVertex(v Vertex) bool {
	_, ok := g.verts[v]
	return ok
}

// Vertices returns every vertex in deterministic insertion order.
func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, 0, len(g.verts))
	for v := range g.verts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return g.verts[out[i]] < g.verts[out[j]] })
	return out
}

// Successors returns v's outgoing edges sorted by target vertex id, so
// that graph walks are deterministic given a fixed graph (spec §4.3
// testability requirement on find_cycle).
func (g *Graph) Successors(v Vertex) []Edge {
	targets := g.adj[v]
	out := make([]Edge, 0, len(targets))
	for to, label := range targets {
		out = append(out, Edge{To: to, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// EdgeLabel returns the label of the edge from -> to and whether it exists.
func (g *Graph) EdgeLabel(from, to Vertex) (relset.Set, bool) {
	label, ok := g.adj[from][to]
	return label, ok
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int { return len(g.verts) }

// Induced returns the subgraph induced by vs: every vertex in vs, and
// every edge of g whose endpoints are both in vs.
func (g *Graph) Induced(vs []Vertex) *Graph {
	keep := make(map[Vertex]bool, len(vs))
	for _, v := range vs {
		keep[v] = true
	}
	out := New()
	for _, v := range vs {
		out.AddVertex(v)
	}
	for from := range keep {
		for to, label := range g.adj[from] {
			if keep[to] {
				out.AddEdge(from, to, label)
			}
		}
	}
	return out
}

// Project returns a new graph over the same vertex set containing exactly
// the edges of g whose label is a subset of rels (spec §4.2's "tight"
// projection contract — not overlap).
func (g *Graph) Project(rels relset.Set) *Graph {
	out := New()
	for v := range g.verts {
		out.AddVertex(v)
	}
	for from, targets := range g.adj {
		for to, label := range targets {
			if label.Subset(rels) {
				out.AddEdge(from, to, label)
			}
		}
	}
	return out
}
