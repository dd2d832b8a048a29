package search

import (
	"context"

	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/txgraph"
)

// Step is one edge of a cycle: (vᵢ, label, vᵢ₊₁ mod n) per spec §3.
type Step struct {
	From  txgraph.Vertex
	To    txgraph.Vertex
	Label relset.Set
}

// Cycle is a non-empty sequence of steps forming a simple cycle: every
// interior vertex appears exactly once, and the last step's To equals the
// first step's From.
type Cycle []Step

// Vertices returns the cycle's vertex sequence [v0, v1, ..., vn-1] (the
// closing vn == v0 is implied, not repeated).
func (c Cycle) Vertices() []txgraph.Vertex {
	out := make([]txgraph.Vertex, len(c))
	for i, s := range c {
		out[i] = s.From
	}
	return out
}

// FindCycle returns any simple cycle in g, or false if the graph is
// acyclic. Deterministic given g's vertex/edge ordering (spec §4.3
// testability). This uses the standard O(V+E) DFS-coloring cycle
// detector (white/gray/black) rather than general backtracking, since no
// transition function or path predicate constrains the search.
func FindCycle(ctx context.Context, g *txgraph.Graph) (Cycle, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[txgraph.Vertex]int)
	onPath := make(map[txgraph.Vertex]int) // vertex -> index in `path`
	var path []Step

	var cyc Cycle
	found := false

	var visit func(v txgraph.Vertex) bool
	visit = func(v txgraph.Vertex) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		color[v] = gray
		onPath[v] = len(path)

		for _, e := range g.Successors(v) {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			switch color[e.To] {
			case white:
				path = append(path, Step{From: v, To: e.To, Label: e.Label})
				if visit(e.To) {
					return true
				}
				path = path[:len(path)-1]
			case gray:
				// Back edge: e.To is an ancestor on the current DFS path.
				start := onPath[e.To]
				cyc = make(Cycle, 0, len(path)-start+1)
				cyc = append(cyc, path[start:]...)
				cyc = append(cyc, Step{From: v, To: e.To, Label: e.Label})
				found = true
				return true
			case black:
				// Already fully explored with no cycle back to it.
			}
		}

		color[v] = black
		delete(onPath, v)
		return false
	}

	for _, v := range g.Vertices() {
		if color[v] != white {
			continue
		}
		if visit(v) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
	}

	return cyc, found
}

// FindCycleStartingWith returns a simple cycle whose first edge is taken
// from gFirst and every subsequent edge from gRest, or false if none
// exists. Used for G-single: exactly one rw edge, then only ww/wr.
func FindCycleStartingWith(ctx context.Context, gFirst, gRest *txgraph.Graph) (Cycle, bool) {
	for _, s := range gFirst.Vertices() {
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
		for _, first := range gFirst.Successors(s) {
			onPath := map[txgraph.Vertex]bool{s: true, first.To: true}
			steps := []Step{{From: s, To: first.To, Label: first.Label}}
			if first.To == s {
				continue // a length-1 self-loop is not a valid cycle (n >= 2)
			}
			if cyc, ok := dfsRest(ctx, gRest, s, first.To, onPath, steps); ok {
				return cyc, true
			}
		}
	}
	return nil, false
}

func dfsRest(ctx context.Context, g *txgraph.Graph, start, current txgraph.Vertex, onPath map[txgraph.Vertex]bool, steps []Step) (Cycle, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	default:
	}
	for _, e := range g.Successors(current) {
		if e.To == start {
			out := make(Cycle, len(steps)+1)
			copy(out, steps)
			out[len(steps)] = Step{From: current, To: e.To, Label: e.Label}
			return out, true
		}
		if onPath[e.To] {
			continue
		}
		onPath[e.To] = true
		steps = append(steps, Step{From: current, To: e.To, Label: e.Label})
		if cyc, ok := dfsRest(ctx, g, start, e.To, onPath, steps); ok {
			return cyc, true
		}
		steps = steps[:len(steps)-1]
		onPath[e.To] = false
	}
	return nil, false
}

// FindCycleWith runs the general backtracking search: trans decides which
// edges may extend the path and carries per-path state; pred, if non-nil,
// is evaluated once a path is about to close and must hold for the
// closure to be accepted. Returns one witness, not all — callers that
// need another must re-run with a graph with that witness's edges removed.
//
// Guarantees a simple cycle (no repeated interior vertex) and checks
// ctx.Done() at every recursive call so a per-SCC timeout (spec §5) takes
// effect promptly.
func FindCycleWith(ctx context.Context, g *txgraph.Graph, trans Transition, pred PathPredicate) (Cycle, bool) {
	for _, s := range g.Vertices() {
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
		onPath := map[txgraph.Vertex]bool{s: true}
		path := &PathState{}
		var steps []Step
		if cyc, ok := dfsConstrained(ctx, g, trans, pred, s, s, trans.Init(), path, onPath, steps); ok {
			return cyc, true
		}
	}
	return nil, false
}

func dfsConstrained(
	ctx context.Context,
	g *txgraph.Graph,
	trans Transition,
	pred PathPredicate,
	start, current txgraph.Vertex,
	state any,
	path *PathState,
	onPath map[txgraph.Vertex]bool,
	steps []Step,
) (Cycle, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	default:
	}

	for _, e := range g.Successors(current) {
		newState, ok := trans.Step(state, path, e.Label, e.To)
		if !ok {
			continue
		}

		if e.To == start {
			if len(steps) == 0 {
				// A direct self-loop edge is not a valid cycle (n >= 2).
				continue
			}
			if wc, isWC := trans.(WrapChecker); isWC && len(path.Labels) > 0 {
				if !wc.CheckWrap(path.Labels[0], e.Label) {
					continue
				}
			}
			path.push(e.Label)
			ok2 := pred == nil || pred(path)
			path.pop()
			if !ok2 {
				continue
			}
			out := make(Cycle, len(steps)+1)
			copy(out, steps)
			out[len(steps)] = Step{From: current, To: e.To, Label: e.Label}
			return out, true
		}

		if onPath[e.To] {
			continue
		}

		onPath[e.To] = true
		path.push(e.Label)
		steps = append(steps, Step{From: current, To: e.To, Label: e.Label})

		if cyc, ok := dfsConstrained(ctx, g, trans, pred, start, e.To, newState, path, onPath, steps); ok {
			return cyc, true
		}

		steps = steps[:len(steps)-1]
		path.pop()
		onPath[e.To] = false
	}

	return nil, false
}
