// Package history defines the transaction/micro-operation data model shared
// by every component in histcheck. Ingestion of a raw history from an
// external source is out of scope here (per spec §1); this package only
// pins down the shape that ingestion must produce.
package history

import (
	"errors"
	"fmt"
)

// Op identifies a micro-operation function.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Outcome is a transaction's recorded result.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeFail Outcome = "fail"
	OutcomeInfo Outcome = "info"
)

// TxnID uniquely identifies a transaction within a History.
type TxnID int64

// Mop is a single micro-operation: (f, k, v).
type Mop struct {
	Op    Op  `json:"f" yaml:"f"`
	Key   any `json:"k" yaml:"k"`
	Value any `json:"v" yaml:"v"`
}

// IsRead reports whether the mop is a read.
func (m Mop) IsRead() bool { return m.Op == OpRead }

// IsWrite reports whether the mop is a write.
func (m Mop) IsWrite() bool { return m.Op == OpWrite }

// Txn is one recorded transaction.
type Txn struct {
	ID      TxnID   `json:"index" yaml:"index"`
	Outcome Outcome `json:"type" yaml:"type"`
	Value   []Mop   `json:"value" yaml:"value"`

	// ProcessID identifies the logical client that submitted this
	// transaction, used to derive process-order edges. Zero value means
	// "unknown process" and such transactions never gain process edges.
	ProcessID int64 `json:"process,omitempty" yaml:"process,omitempty"`
}

// History is an ordered recording of transactions.
type History struct {
	Txns []Txn `json:"txns" yaml:"txns"`
}

// ErrMixedKeyTypes and ErrMixedValueTypes are configuration errors per
// spec §7: a history whose keys or values are not of a single consistent
// Go type cannot be compared by the downstream analyzer.
var (
	ErrMixedKeyTypes   = errors.New("history: mixed key types")
	ErrMixedValueTypes = errors.New("history: mixed value types")
	ErrDuplicateWrite  = errors.New("history: duplicate write value for key")
)

// Validate checks the configuration invariants from spec §3: keys and
// values each have a single type across the whole history, and write
// values are unique per key. It does not validate business semantics
// (e.g. read-your-writes) — that is the analyzer's job.
func (h *History) Validate() error {
	var keyType, valType string
	seenWrites := make(map[any]map[any]TxnID) // key -> value -> first writer

	for _, txn := range h.Txns {
		for _, mop := range txn.Value {
			if mop.Key != nil {
				kt := typeName(mop.Key)
				if keyType == "" {
					keyType = kt
				} else if kt != keyType {
					return fmt.Errorf("%w: saw %s and %s", ErrMixedKeyTypes, keyType, kt)
				}
			}
			if mop.IsWrite() && mop.Value != nil {
				vt := typeName(mop.Value)
				if valType == "" {
					valType = vt
				} else if vt != valType {
					return fmt.Errorf("%w: saw %s and %s", ErrMixedValueTypes, valType, vt)
				}

				byVal, ok := seenWrites[mop.Key]
				if !ok {
					byVal = make(map[any]TxnID)
					seenWrites[mop.Key] = byVal
				}
				if prior, ok := byVal[mop.Value]; ok && prior != txn.ID {
					return fmt.Errorf("%w: key=%v value=%v written by %d and %d",
						ErrDuplicateWrite, mop.Key, mop.Value, prior, txn.ID)
				}
				byVal[mop.Value] = txn.ID
			}
		}
	}
	return nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// ExternalReads returns, for each key, the value first read by txn before
// any write to that key within txn — i.e. the "externally visible" read
// spec §4.7 keys the lost-update scan on. Keys written-before-read (a
// local read of one's own write) are excluded, since that read did not
// observe another transaction's commit.
func (t Txn) ExternalReads() map[any]any {
	out := make(map[any]any)
	written := make(map[any]bool)
	for _, mop := range t.Value {
		switch {
		case mop.IsWrite():
			written[mop.Key] = true
		case mop.IsRead():
			if !written[mop.Key] {
				if _, already := out[mop.Key]; !already {
					out[mop.Key] = mop.Value
				}
			}
		}
	}
	return out
}

// WrittenKeys returns the set of keys txn wrote, in write order with
// duplicates removed (last value wins is irrelevant here — only presence
// matters to the lost-update scan).
func (t Txn) WrittenKeys() []any {
	seen := make(map[any]bool)
	var keys []any
	for _, mop := range t.Value {
		if mop.IsWrite() && !seen[mop.Key] {
			seen[mop.Key] = true
			keys = append(keys, mop.Key)
		}
	}
	return keys
}
