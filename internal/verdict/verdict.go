// Package verdict computes the final valid/invalid/unknown result from a
// collection of declared consistency models, any extra anomaly kinds to
// additionally prohibit, and the anomaly map actually found (spec §4.8).
package verdict

import (
	"sort"

	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/dbhist/histcheck/internal/consistency"
)

// Synthetic anomaly-map entries spec §4.8 names unknown-kinds: findings
// that make a verdict inconclusive rather than invalid, because the
// search could not prove anything one way or the other about the
// transactions it never got to look at.
const (
	KindCycleSearchTimeout    = "cycle-search-timeout"
	KindEmptyTransactionGraph = "empty-transaction-graph"
)

var unknownKinds = map[string]bool{
	KindCycleSearchTimeout:    true,
	KindEmptyTransactionGraph: true,
}

// Result is the outcome of checking a history against a collection of
// consistency models.
type Result struct {
	Models []consistency.Model

	// Valid is false iff at least one prohibited anomaly was found.
	Valid bool

	// Unknown is true when the anomaly map contains a synthetic
	// unknown-kind entry (:cycle-search-timeout or
	// :empty-transaction-graph) and nothing prohibited was otherwise
	// found — the history might still be invalid, but the search
	// couldn't prove it one way or the other. A prohibited anomaly found
	// alongside an unknown-kind entry still makes Valid=false and
	// Unknown=false: a witness is a witness regardless of whether the
	// rest of the search ran to completion.
	Unknown bool

	// Anomalies lists the prohibited anomaly names that were found, sorted.
	Anomalies []string

	// Reportable lists found unknown-kind entries (:cycle-search-timeout,
	// :empty-transaction-graph) — reportable per spec §4.8 but never on
	// their own enough to invalidate a history — sorted.
	Reportable []string
}

// Compute builds a Result from the declared models, the extra anomaly
// kinds to additionally prohibit regardless of model, and the anomaly map
// found by a search (as a set — counts don't matter here, only presence).
//
// prohibited = anomalies-prohibited-by(models) ∪ all-anomalies-implying(extras)
// unknown-kinds = {:empty-transaction-graph, :cycle-search-timeout}
// reportable = prohibited ∪ unknown-kinds
// report = anomaly-map ∩ reportable
func Compute(models []consistency.Model, extras []anomaly.Kind, found map[string]bool) Result {
	prohibited := consistency.ProhibitedAll(models)
	for _, k := range extras {
		for _, name := range consistency.Implying(k) {
			prohibited[name] = true
		}
	}

	var bad, other []string
	for name := range found {
		switch {
		case prohibited[name]:
			bad = append(bad, name)
		case unknownKinds[name]:
			other = append(other, name)
		}
	}
	sort.Strings(bad)
	sort.Strings(other)

	return Result{
		Models:     models,
		Valid:      len(bad) == 0,
		Unknown:    len(bad) == 0 && len(other) > 0,
		Anomalies:  bad,
		Reportable: other,
	}
}
