// Package anomaly is the Declarative Anomaly Specification layer (spec
// §4.4): it compiles the fixed, priority-ordered table of anomaly kinds
// into the search-graph selection plus Transition/PathPredicate pairs that
// internal/search consumes, instead of hand-writing six near-identical
// search call sites.
package anomaly

import (
	"context"

	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/search"
	"github.com/dbhist/histcheck/internal/txgraph"
)

// Kind names one of the six cycle shapes this module recognizes.
type Kind string

const (
	G0           Kind = "G0"
	G1c          Kind = "G1c"
	GSingle      Kind = "G-single"
	GNonadjacent Kind = "G-nonadjacent"
	G2Item       Kind = "G2-item"
	G2           Kind = "G2"
)

// Variant tags a kind with the extra edge relation its cycle must also
// respect: none, -process, or -realtime.
type Variant string

const (
	VariantNone     Variant = ""
	VariantProcess  Variant = "process"
	VariantRealtime Variant = "realtime"
)

// Name joins a Kind and Variant into the reported anomaly name, e.g.
// "G-single-realtime". VariantNone yields the bare kind name.
func (v Variant) Name(k Kind) string {
	if v == VariantNone {
		return string(k)
	}
	return string(k) + "-" + string(v)
}

func (v Variant) rel() relset.Set {
	switch v {
	case VariantProcess:
		return relset.Of(relset.Process)
	case VariantRealtime:
		return relset.Of(relset.Realtime)
	default:
		return relset.Empty
	}
}

// Spec is one compiled row of the anomaly table: everything internal/search
// needs to look for this particular cycle shape in a given SCC.
type Spec struct {
	Kind    Kind
	Variant Variant

	// StartGraphRels, if non-empty, routes this spec through
	// search.FindCycleStartingWith: the first edge must come from the
	// projection onto StartGraphRels, every later edge from the
	// projection onto SearchGraphRels.
	StartGraphRels relset.Set

	// SearchGraphRels is the rel set the base graph is projected onto
	// before searching (the "rest" graph when StartGraphRels is set).
	SearchGraphRels relset.Set

	// Trans and Pred drive search.FindCycleWith. Both may be nil, in
	// which case Find uses the cheaper search.FindCycle fast path
	// (equivalent to TrivialTransition with no predicate).
	Trans search.Transition
	Pred  search.PathPredicate
}

// Name is this spec's full reported anomaly name.
func (s Spec) Name() string { return s.Variant.Name(s.Kind) }

// RelSets returns every rel set this spec will ask the projection cache
// for, so a driver can warm the cache before starting a search's timeout
// clock (spec §5).
func (s Spec) RelSets() []relset.Set {
	if s.StartGraphRels != relset.Empty {
		return []relset.Set{s.StartGraphRels, s.SearchGraphRels}
	}
	return []relset.Set{s.SearchGraphRels}
}

// Find runs this spec's search against cache, returning the witness cycle
// if found.
func (s Spec) Find(ctx context.Context, cache *txgraph.ProjectionCache) (search.Cycle, bool) {
	if s.StartGraphRels != relset.Empty {
		gFirst := cache.Get(s.StartGraphRels)
		gRest := cache.Get(s.SearchGraphRels)
		return search.FindCycleStartingWith(ctx, gFirst, gRest)
	}
	g := cache.Get(s.SearchGraphRels)
	if s.Trans == nil {
		return search.FindCycle(ctx, g)
	}
	return search.FindCycleWith(ctx, g, s.Trans, s.Pred)
}

// Table builds the fixed, priority-ordered 18-entry anomaly spec table:
// six kinds times three variants (none, process, realtime). Entries are
// ordered kind-major (G0 first, since a dirty write is the most basic
// violation, down to G2 last) and, within a kind, strongest-variant-first
// (realtime, then process, then none) — spec §9 leaves the priority among
// variants of the same kind unspecified, and reporting the strongest
// available witness first is the more useful default for a caller that
// only keeps the first match per kind. See DESIGN.md for this decision.
func Table() []Spec {
	kinds := []Kind{G0, G1c, GSingle, GNonadjacent, G2Item, G2}
	variants := []Variant{VariantRealtime, VariantProcess, VariantNone}

	var table []Spec
	for _, k := range kinds {
		for _, v := range variants {
			table = append(table, build(k, v))
		}
	}
	return table
}

func build(k Kind, v Variant) Spec {
	extra := v.rel()
	ww := relset.Of(relset.WW).Union(extra)
	wwwr := relset.Of(relset.WW, relset.WR).Union(extra)
	rw := relset.Of(relset.RW)
	all := relset.Of(relset.WW, relset.WR, relset.RW).Union(extra)

	switch k {
	case G0:
		// A cycle of only write-write edges (plus the variant's timing
		// edges riding along) is a dirty write. Required(ww) still guards
		// against the degenerate cycle made entirely of process/realtime
		// edges with no ww edge at all, while still matching a minimal
		// witness with a single ww edge plus a single process/realtime edge.
		return Spec{
			Kind: k, Variant: v,
			SearchGraphRels: ww,
			Trans:           search.TrivialTransition{},
			Pred:            search.Required(relset.Of(relset.WW)),
		}
	case G1c:
		// ww and wr edges, with at least one wr — a pure-ww cycle is
		// already reported as G0 and ranked ahead of this entry.
		return Spec{
			Kind: k, Variant: v,
			SearchGraphRels: wwwr,
			Trans:           search.TrivialTransition{},
			Pred:            search.Required(relset.Of(relset.WR)),
		}
	case GSingle:
		// Exactly one rw edge: the first edge must be rw (from the
		// rw-only graph), every later edge ww/wr — gRest excludes rw
		// entirely so a second rw edge cannot appear.
		return Spec{
			Kind: k, Variant: v,
			StartGraphRels:  rw,
			SearchGraphRels: wwwr,
		}
	case GNonadjacent:
		// Two or more rw edges, none adjacent (wrap included).
		return Spec{
			Kind: k, Variant: v,
			SearchGraphRels: all,
			Trans:           search.NonadjacentTransition{R: relset.Of(relset.RW)},
			Pred:            search.Multiple(relset.Of(relset.RW)),
		}
	case G2Item:
		// At least one rw edge, adjacency unconstrained: the general
		// item-level anti-dependency cycle that subsumes G-single and
		// G-nonadjacent as specific cases.
		return Spec{
			Kind: k, Variant: v,
			SearchGraphRels: all,
			Trans:           search.TrivialTransition{},
			Pred:            search.Required(relset.Of(relset.RW)),
		}
	case G2:
		// Predicate anti-dependency is a Non-goal here (no predicate
		// reads are modeled — see SPEC_FULL.md); this entry shares
		// G2-item's item-level detection so the table stays the full
		// 18 rows the spec describes, ranked last. internal/sccdriver
		// labels every hit via internal/classify, which never returns
		// G2, so a cycle this row finds is reported as G2-item.
		return Spec{
			Kind: k, Variant: v,
			SearchGraphRels: all,
			Trans:           search.TrivialTransition{},
			Pred:            search.Required(relset.Of(relset.RW)),
		}
	default:
		panic("anomaly: unknown kind " + string(k))
	}
}

// AllRelSets collects every distinct rel set the full table will query,
// for a single cache warm-up call ahead of the per-SCC search timeout.
func AllRelSets(table []Spec) []relset.Set {
	seen := make(map[relset.Set]bool)
	var out []relset.Set
	for _, s := range table {
		for _, rs := range s.RelSets() {
			if !seen[rs] {
				seen[rs] = true
				out = append(out, rs)
			}
		}
	}
	return out
}
