package txgraph

import (
	"context"
	"sort"
)

// SCC computes the strongly connected components of g using Tarjan's
// algorithm, grounded on the teacher's recursive tarjan_scc.go but
// rewritten with an explicit work stack: histories can produce graphs much
// larger than the teacher's code-dependency graphs, and an explicit stack
// avoids a goroutine-stack overflow on a long SCC chain.
//
// SCCs are returned in reverse topological order, one []Vertex per
// component, each internally sorted by vertex id for determinism. Singleton
// components with no self-loop are included (callers filter on length < 2
// where spec §9 requires "|s| >= 2, otherwise the SCC is a single
// self-loopless vertex and contributes nothing").
//
// Thread Safety: safe for concurrent use over distinct graphs; a single
// call must not be shared across goroutines.
func SCC(ctx context.Context, g *Graph) []VertexSet {
	s := &tarjanState{
		index:   make(map[Vertex]int),
		lowlink: make(map[Vertex]int),
		onStack: make(map[Vertex]bool),
		next:    0,
	}

	for _, v := range g.Vertices() {
		select {
		case <-ctx.Done():
			return s.sccs
		default:
		}
		if _, visited := s.index[v]; !visited {
			strongConnect(ctx, g, s, v)
		}
	}
	return s.sccs
}

type tarjanState struct {
	index   map[Vertex]int
	lowlink map[Vertex]int
	onStack map[Vertex]bool
	stack   []Vertex
	next    int
	sccs    [][]Vertex
}

// frame is one level of the simulated recursion: the vertex being
// visited, its successor list, and how far through it we've iterated.
type frame struct {
	v         Vertex
	succs     []Edge
	succIdx   int
	returnTo  Vertex // the vertex whose lowlink to update with v's lowlink on pop
	haveRetTo bool
}

func strongConnect(ctx context.Context, g *Graph, s *tarjanState, start Vertex) {
	var work []frame
	push := func(v Vertex, returnTo Vertex, haveRetTo bool) {
		s.index[v] = s.next
		s.lowlink[v] = s.next
		s.next++
		s.stack = append(s.stack, v)
		s.onStack[v] = true
		work = append(work, frame{v: v, succs: g.Successors(v), returnTo: returnTo, haveRetTo: haveRetTo})
	}

	push(start, 0, false)

	for len(work) > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}

		topIdx := len(work) - 1

		if work[topIdx].succIdx < len(work[topIdx].succs) {
			w := work[topIdx].succs[work[topIdx].succIdx].To
			v := work[topIdx].v
			work[topIdx].succIdx++

			if _, visited := s.index[w]; !visited {
				// push() may grow and reallocate `work`, so read
				// everything we need from work[topIdx] before calling it.
				push(w, v, true)
				continue
			}
			if s.onStack[w] {
				if s.index[w] < s.lowlink[v] {
					s.lowlink[v] = s.index[w]
				}
			}
			continue
		}

		// Done with v's successors: pop and finalize.
		v := work[topIdx].v
		if work[topIdx].haveRetTo {
			returnTo := work[topIdx].returnTo
			if s.lowlink[v] < s.lowlink[returnTo] {
				s.lowlink[returnTo] = s.lowlink[v]
			}
		}
		work = work[:len(work)-1]

		if s.lowlink[v] == s.index[v] {
			var scc []Vertex
			for {
				n := len(s.stack) - 1
				w := s.stack[n]
				s.stack = s.stack[:n]
				s.onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
			s.sccs = append(s.sccs, scc)
		}
	}
}
