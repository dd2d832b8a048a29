// Package lostupdate implements the linear scan from spec §4.7: a lost
// update is found directly from two transactions' recorded reads and
// writes, without building the dependency graph, so it runs even when a
// history is too large or the per-SCC timeout too tight to reach the
// relevant cycle.
package lostupdate

import "github.com/dbhist/histcheck/internal/history"

// Pair is one detected lost-update witness: two committed transactions
// that both externally read the same (key, value) and then both wrote
// that key — one of the two writes necessarily overwrote the other
// without having observed it.
type Pair struct {
	Key       any
	Value     any
	FirstTxn  history.TxnID
	SecondTxn history.TxnID
}

type keyValue struct {
	key   any
	value any
}

// Find scans h's committed (ok) transactions in order and returns every
// lost-update pair. A transaction only participates as a candidate for a
// key if it both externally read that key (spec §4.7: a read not
// satisfied by its own prior write in the same transaction) and wrote it
// — reading a value without ever writing it back can't lose an update.
//
// Pairs are reported in the order the second (later) transaction of each
// pair appears in h.Txns (pairs sharing a second transaction follow the
// order of its WrittenKeys), making output deterministic for a fixed input
// history.
func Find(h *history.History) []Pair {
	seenBy := make(map[keyValue][]history.TxnID)
	var pairs []Pair

	for _, txn := range h.Txns {
		if txn.Outcome != history.OutcomeOK {
			continue
		}

		reads := txn.ExternalReads()
		for _, k := range txn.WrittenKeys() {
			v, ok := reads[k]
			if !ok {
				continue
			}
			kv := keyValue{key: k, value: v}
			for _, earlier := range seenBy[kv] {
				pairs = append(pairs, Pair{
					Key:       k,
					Value:     v,
					FirstTxn:  earlier,
					SecondTxn: txn.ID,
				})
			}
			seenBy[kv] = append(seenBy[kv], txn.ID)
		}
	}

	return pairs
}
