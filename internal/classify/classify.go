// Package classify assigns a witness cycle its anomaly kind and variant
// (spec §4.5), independently of which internal/anomaly spec's search
// happened to find it. internal/sccdriver uses internal/anomaly.Table to
// search efficiently but reports results in the caller-facing vocabulary
// this package produces, so a cycle found via one spec's relaxed search
// (e.g. G2-item's "at least one rw") is still labeled by its tightest
// true shape.
package classify

import (
	"fmt"

	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/search"
)

// Result is a cycle's classified shape.
type Result struct {
	Kind    anomaly.Kind
	Variant anomaly.Variant
}

// Name is the full reported anomaly name, e.g. "G-single-realtime".
func (r Result) Name() string { return r.Variant.Name(r.Kind) }

// errEmptyCycle classifies a zero-length argument, which is never a valid
// witness.
var errEmptyCycle = fmt.Errorf("classify: empty cycle")

// Classify tallies cyc's edge labels and derives its kind per spec §4.5:
//
//   - zero rw edges: G0 if every edge is ww, else G1c (mix of ww/wr, or
//     wr-only)
//   - exactly one rw edge: G-single
//   - two or more rw edges, none adjacent (including the wrap edge):
//     G-nonadjacent
//   - two or more rw edges with at least one adjacent pair: G2-item
//
// Variant is realtime if any edge carries the realtime label, else
// process if any carries process, else none — realtime dominates process
// per spec §4.5 when a cycle happens to carry both.
//
// Panics if cyc is empty, or if every edge's label is empty of ww/wr/rw
// (a cycle made entirely of process/realtime edges cannot be classified
// — the spec ambiguity table documents this as a classifier error, not a
// silently-produced result).
func Classify(cyc search.Cycle) Result {
	if len(cyc) == 0 {
		panic(errEmptyCycle)
	}

	var wwCount, wrCount, rwCount int
	hasProcess, hasRealtime := false, false
	rwAdjacent := false

	n := len(cyc)
	for i, step := range cyc {
		l := step.Label
		if l.Contains(relset.WW) {
			wwCount++
		}
		if l.Contains(relset.WR) {
			wrCount++
		}
		if l.Contains(relset.RW) {
			rwCount++
		}
		if l.Contains(relset.Process) {
			hasProcess = true
		}
		if l.Contains(relset.Realtime) {
			hasRealtime = true
		}
		if l.Contains(relset.RW) {
			next := cyc[(i+1)%n].Label
			if next.Contains(relset.RW) {
				rwAdjacent = true
			}
		}
	}

	if wwCount == 0 && wrCount == 0 && rwCount == 0 {
		panic(fmt.Sprintf("classify: cycle of length %d has no ww/wr/rw edge in any step", n))
	}

	variant := anomaly.VariantNone
	switch {
	case hasRealtime:
		variant = anomaly.VariantRealtime
	case hasProcess:
		variant = anomaly.VariantProcess
	}

	var kind anomaly.Kind
	switch {
	case rwCount == 0 && wrCount == 0:
		kind = anomaly.G0
	case rwCount == 0:
		kind = anomaly.G1c
	case rwCount == 1:
		kind = anomaly.GSingle
	case !rwAdjacent:
		kind = anomaly.GNonadjacent
	default:
		kind = anomaly.G2Item
	}

	return Result{Kind: kind, Variant: variant}
}
