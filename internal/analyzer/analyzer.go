// Package analyzer pins down the Go contract for the Analyzer/PairExplainer
// collaborator spec §6 places out of scope for the core, and ships a
// deterministic in-memory implementation of it purely as a test fixture
// and for the `histcheck gen` dev loop — not as the production
// ingestion path, which is expected to come from a caller's own database
// driver / history store.
//
// Version order (the ww chain per key) is inferred from the order
// transactions appear in the input history, since neither
// internal/history.Txn nor the spec defines an explicit version/sequence
// field; this mirrors the assumption every example producer in
// internal/workload already satisfies (each Generator emits transactions
// in the order they should be considered committed). Real-time edges are
// similarly approximated from recorded order rather than interval
// timestamps, which internal/history.Txn also doesn't carry — see
// DESIGN.md for why this is a deliberate simplification rather than an
// oversight.
package analyzer

import (
	"context"
	"fmt"

	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/txgraph"
)

// PairExplainer renders a human-readable explanation for one edge of a
// witness cycle, e.g. for inclusion in a rendered report.
type PairExplainer func(a, b history.TxnID, rels relset.Set) (string, error)

// Analyzer builds a dependency graph, its SCC partition, and a
// PairExplainer from a raw history. Ingestion from an external database
// is out of scope here — this is the seam a caller plugs their own
// collaborator into.
type Analyzer interface {
	Analyze(ctx context.Context, h *history.History) (*txgraph.Graph, PairExplainer, []txgraph.VertexSet, error)
}

// InMemory is the deterministic, dependency-free Analyzer implementation.
type InMemory struct{}

// New builds an InMemory analyzer.
func New() *InMemory { return &InMemory{} }

type version struct {
	txn   history.TxnID
	value any
}

// Analyze infers ww, wr, rw, process, and realtime edges for every
// committed (ok) transaction in h, decomposes the result into strongly
// connected components, and pairs it with ExplainPair. Failed and info
// transactions contribute no vertices: spec §3 scopes the dependency
// graph to committed operations only.
func (a *InMemory) Analyze(ctx context.Context, h *history.History) (*txgraph.Graph, PairExplainer, []txgraph.VertexSet, error) {
	g := txgraph.New()

	var ok []history.Txn
	for _, txn := range h.Txns {
		if txn.Outcome != history.OutcomeOK {
			continue
		}
		ok = append(ok, txn)
		g.AddVertex(txn.ID)
	}

	chains := versionChains(ok)

	addWWEdges(g, chains)
	addWRAndRWEdges(g, ok, chains)
	addProcessEdges(g, ok)
	addRealtimeEdges(g, ok)

	sccs := txgraph.SCC(ctx, g)
	return g, ExplainPair, sccs, nil
}

// versionChains groups each key's writes, in the order their owning
// transactions appear in txns, into the chain of versions for that key.
func versionChains(txns []history.Txn) map[any][]version {
	chains := make(map[any][]version)
	for _, txn := range txns {
		for _, key := range txn.WrittenKeys() {
			for _, mop := range txn.Value {
				if mop.IsWrite() && mop.Key == key {
					chains[key] = append(chains[key], version{txn: txn.ID, value: mop.Value})
				}
			}
		}
	}
	return chains
}

func addWWEdges(g *txgraph.Graph, chains map[any][]version) {
	for _, chain := range chains {
		for i := 0; i+1 < len(chain); i++ {
			if chain[i].txn == chain[i+1].txn {
				continue
			}
			g.AddEdge(chain[i].txn, chain[i+1].txn, relset.Of(relset.WW))
		}
	}
}

// addWRAndRWEdges links each external read to the transaction that wrote
// the value observed (wr), and to the transaction that wrote the next
// version after it in the chain, if any (rw: the classic item-level
// anti-dependency — a transaction that reads version N must be ordered
// before whoever wrote version N+1, since it observed a state that
// writer's commit superseded).
func addWRAndRWEdges(g *txgraph.Graph, txns []history.Txn, chains map[any][]version) {
	writerOf := make(map[any]map[any]history.TxnID) // key -> value -> writer
	nextWriter := make(map[any]map[history.TxnID]history.TxnID)

	for key, chain := range chains {
		byValue := make(map[any]history.TxnID, len(chain))
		next := make(map[history.TxnID]history.TxnID, len(chain))
		for i, v := range chain {
			byValue[v.value] = v.txn
			if i+1 < len(chain) {
				next[v.txn] = chain[i+1].txn
			}
		}
		writerOf[key] = byValue
		nextWriter[key] = next
	}

	for _, txn := range txns {
		for key, val := range txn.ExternalReads() {
			byValue, ok := writerOf[key]
			if !ok {
				continue
			}
			writer, ok := byValue[val]
			if !ok {
				// A read whose value no recorded write produced: either the
				// initial (pre-history) value, or a configuration error
				// internal/history.Validate would already have caught for
				// mismatched types. Either way, it contributes no edge.
				continue
			}
			if writer != txn.ID {
				g.AddEdge(writer, txn.ID, relset.Of(relset.WR))
			}
			if next, ok := nextWriter[key][writer]; ok && next != txn.ID {
				g.AddEdge(txn.ID, next, relset.Of(relset.RW))
			}
		}
	}
}

// addProcessEdges links consecutive transactions submitted by the same
// process, in the order they were recorded, under the process relation.
// ProcessID zero means "unknown process" (spec §3) and is excluded.
func addProcessEdges(g *txgraph.Graph, txns []history.Txn) {
	byProcess := make(map[int64][]history.TxnID)
	for _, txn := range txns {
		if txn.ProcessID == 0 {
			continue
		}
		byProcess[txn.ProcessID] = append(byProcess[txn.ProcessID], txn.ID)
	}
	for _, ids := range byProcess {
		for i := 0; i+1 < len(ids); i++ {
			g.AddEdge(ids[i], ids[i+1], relset.Of(relset.Process))
		}
	}
}

// addRealtimeEdges links consecutive transactions in the order they were
// recorded, under the realtime relation — the only ordering signal
// available without interval timestamps.
func addRealtimeEdges(g *txgraph.Graph, txns []history.Txn) {
	for i := 0; i+1 < len(txns); i++ {
		g.AddEdge(txns[i].ID, txns[i+1].ID, relset.Of(relset.Realtime))
	}
}

// ExplainPair is the default PairExplainer: a flat, English rendering of
// one edge suitable for a text report.
func ExplainPair(a, b history.TxnID, rels relset.Set) (string, error) {
	return fmt.Sprintf("T%d -> T%d via %s", a, b, rels), nil
}
