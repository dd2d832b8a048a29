// Package search implements the three bounded graph searches from spec
// §4.3: find_cycle, find_cycle_starting_with, and find_cycle_with, plus
// the tagged-variant transition functions and path predicates Design Note 1
// asks for (modeled as concrete types implementing small interfaces, so
// the anomaly spec table stays data, not code).
package search

import (
	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/txgraph"
)

// PathState is the extensible path context threaded through a search: the
// labels of every edge traversed so far, in order. Transition and
// PathPredicate implementations read it to accept or reject a candidate
// path; neither may retain a reference past the call in which it's given,
// since the search mutates it in place while backtracking.
type PathState struct {
	Labels []relset.Set
}

func (p *PathState) push(l relset.Set) { p.Labels = append(p.Labels, l) }
func (p *PathState) pop()              { p.Labels = p.Labels[:len(p.Labels)-1] }

// Transition decides, for each candidate edge, whether the path so far may
// be extended across it, and what state to carry forward if so.
type Transition interface {
	// Init returns the state before the first edge of a candidate cycle.
	Init() any
	// Step is called for every candidate edge (v, label, next) with the
	// state accumulated so far. ok=false rejects the edge outright.
	Step(state any, path *PathState, label relset.Set, next txgraph.Vertex) (newState any, ok bool)
}

// WrapChecker is an optional extension a Transition may implement to
// additionally constrain the last->first "wrap" adjacency of a closed
// cycle — information that isn't available to Step when it evaluates the
// first edge, since the wrap edge's label isn't chosen yet. Search calls
// CheckWrap once, right before accepting a tentative cycle closure.
type WrapChecker interface {
	CheckWrap(firstLabel, lastLabel relset.Set) bool
}

// TrivialTransition accepts every edge unconditionally.
type TrivialTransition struct{}

func (TrivialTransition) Init() any { return nil }
func (TrivialTransition) Step(_ any, _ *PathState, _ relset.Set, _ txgraph.Vertex) (any, bool) {
	return nil, true
}

// FirstOnlyTransition implements spec §4.3's first_only(R): the first edge
// of the path must be a subset of R, and no later edge may be.
type FirstOnlyTransition struct {
	R relset.Set
}

func (t FirstOnlyTransition) Init() any { return true } // true = "expecting the first edge"

func (t FirstOnlyTransition) Step(state any, _ *PathState, label relset.Set, _ txgraph.Vertex) (any, bool) {
	expectingFirst := state.(bool)
	inR := label.Subset(t.R)
	if expectingFirst {
		if !inR {
			return nil, false
		}
		return false, true
	}
	if inR {
		return nil, false
	}
	return false, true
}

// NonadjacentTransition implements spec §4.3's nonadjacent(R): no two
// consecutive edges (including the last->first wrap) may both be subsets
// of R. Step enforces ordinary adjacency between edge i-1 and edge i; the
// wrap between the last edge and the first is information Step cannot see
// when it evaluates the first edge (the wrap edge's label isn't chosen
// yet), so it's checked separately via CheckWrap once a path is about to
// close rather than forced entirely into Step's running boolean.
type NonadjacentTransition struct {
	R relset.Set
}

func (t NonadjacentTransition) Init() any { return false } // no previous edge yet

func (t NonadjacentTransition) Step(state any, _ *PathState, label relset.Set, _ txgraph.Vertex) (any, bool) {
	prevInR := state.(bool)
	inR := label.Subset(t.R)
	if prevInR && inR {
		return nil, false
	}
	return inR, true
}

func (t NonadjacentTransition) CheckWrap(firstLabel, lastLabel relset.Set) bool {
	return !(firstLabel.Subset(t.R) && lastLabel.Subset(t.R))
}

// PathPredicate inspects a fully-traversed (but not yet accepted) cycle
// and decides whether it satisfies an additional constraint.
type PathPredicate func(*PathState) bool

// Multiple implements spec §4.3's multiple(R): at least two edges in the
// path are subsets of R.
func Multiple(r relset.Set) PathPredicate {
	return func(p *PathState) bool {
		count := 0
		for _, l := range p.Labels {
			if l.Subset(r) {
				count++
				if count >= 2 {
					return true
				}
			}
		}
		return false
	}
}

// Required implements spec §4.3's required(R): at least one edge in the
// path is a subset of R.
func Required(r relset.Set) PathPredicate {
	return func(p *PathState) bool {
		for _, l := range p.Labels {
			if l.Subset(r) {
				return true
			}
		}
		return false
	}
}

// AndAll conjoins predicates, short-circuiting on the first failure.
func AndAll(preds ...PathPredicate) PathPredicate {
	return func(p *PathState) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}
