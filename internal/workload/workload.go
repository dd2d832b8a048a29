// Package workload implements the synthetic workload generator from spec
// §4.9: a deterministic (given a seed), pluggable-distribution key
// picker that produces read/write transactions suitable for feeding
// straight into internal/history, with optional rate limiting so a
// generator can drive a live system without overwhelming it.
package workload

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/time/rate"

	"github.com/dbhist/histcheck/internal/history"
)

// Distribution selects how a generator picks among its active keys.
type Distribution string

const (
	// Uniform picks any active key with equal probability.
	Uniform Distribution = "uniform"
	// Exponential skews toward the high end of the active-key slice (each
	// index is KeyDistBase times as likely as the one before it), modeling the hot-key access pattern real workloads exhibit.
	Exponential Distribution = "exponential"
)

// Options configures a Generator. Defaults mirror spec §4.9's parameter
// table; Rate is in operations per second and zero disables pacing.
type Options struct {
	KeyCount        int
	Distribution    Distribution
	KeyDistBase     float64 // base b of the exponential selection formula; ignored for Uniform
	MinTxnLength    int     // minimum micro-ops per generated transaction
	MaxTxnLength    int     // maximum micro-ops per generated transaction
	MaxWritesPerKey int     // writes to a key before it's retired and replaced; 0 selects the default of 32
	Rate            float64 // ops/sec; 0 = unpaced
	Seed            int64

	// OpsPerTxn, if set, fixes every transaction to exactly this many
	// micro-ops instead of drawing a length uniformly from
	// [MinTxnLength, MaxTxnLength]. Kept for callers that want a fixed
	// shape; spec §4.9's generator leaves it unset.
	OpsPerTxn int
}

func (o Options) withDefaults() Options {
	if o.Distribution == "" {
		o.Distribution = Uniform
	}
	if o.KeyCount <= 0 {
		if o.Distribution == Exponential {
			o.KeyCount = 10
		} else {
			o.KeyCount = 3
		}
	}
	if o.KeyDistBase <= 1 {
		o.KeyDistBase = 2
	}
	if o.MinTxnLength <= 0 {
		o.MinTxnLength = 1
	}
	if o.MaxTxnLength <= 0 {
		o.MaxTxnLength = 2
	}
	if o.MaxTxnLength < o.MinTxnLength {
		o.MaxTxnLength = o.MinTxnLength
	}
	if o.MaxWritesPerKey <= 0 {
		o.MaxWritesPerKey = 32
	}
	return o
}

// Generator produces transactions with monotonically increasing
// per-key write values, picking keys from a fixed-size active set
// according to Options.Distribution.
//
// Thread Safety: not safe for concurrent use. Run one Generator per
// simulated client/process and merge their output afterward, the same
// way the corresponding history's ProcessID fields are assigned.
type Generator struct {
	opts    Options
	rng     *rand.Rand
	limiter *rate.Limiter

	active    []int64       // current active key set, fixed length opts.KeyCount
	writes    map[int64]int // writes-so-far per key, for retirement
	nextWrite map[int64]int64
	nextTxnID int64
}

// New builds a Generator. Each instance owns a private *rand.Rand seeded
// from Options.Seed, so two generators built with the same seed produce
// identical output regardless of global program state — deliberately not
// math/rand's package-level functions, which share mutable global state
// across every caller in the process.
func New(opts Options) *Generator {
	opts = opts.withDefaults()
	g := &Generator{
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		writes:    make(map[int64]int),
		nextWrite: make(map[int64]int64),
	}
	if opts.Rate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	g.active = make([]int64, opts.KeyCount)
	for i := range g.active {
		g.active[i] = int64(i)
	}
	return g
}

// pickSlot chooses an index into g.active per the configured
// distribution. Exponential sampling follows spec §4.9's formula
// exactly: given base b and count n, scale s = b(bⁿ−1)/(b−1), draw
// u ∈ [0, s), and return index i = ⌊log_b(u + b) − 1⌋.
func (g *Generator) pickSlot() int {
	n := len(g.active)
	if n == 1 {
		return 0
	}
	switch g.opts.Distribution {
	case Exponential:
		b := g.opts.KeyDistBase
		s := b * (math.Pow(b, float64(n)) - 1) / (b - 1)
		u := g.rng.Float64() * s
		idx := int(math.Log(u+b)/math.Log(b)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		return idx
	default:
		return g.rng.Intn(n)
	}
}

// touch records a read of the key at active[slot]; reads never count
// toward retirement.
func (g *Generator) touch(slot int) int64 {
	return g.active[slot]
}

// writeTo records a write of the key at active[slot], retiring and
// replacing it with max(active)+1 once it has accumulated
// Options.MaxWritesPerKey writes.
func (g *Generator) writeTo(slot int) int64 {
	key := g.active[slot]
	g.writes[key]++
	if g.writes[key] < g.opts.MaxWritesPerKey {
		return key
	}
	delete(g.writes, key)

	max := g.active[0]
	for _, k := range g.active {
		if k > max {
			max = k
		}
	}
	g.active[slot] = max + 1
	return key
}

// txnLength draws a transaction's micro-op count. OpsPerTxn, if set,
// overrides the uniform draw with a fixed length.
func (g *Generator) txnLength() int {
	if g.opts.OpsPerTxn > 0 {
		return g.opts.OpsPerTxn
	}
	span := g.opts.MaxTxnLength - g.opts.MinTxnLength
	if span <= 0 {
		return g.opts.MinTxnLength
	}
	return g.opts.MinTxnLength + g.rng.Intn(span+1)
}

// Next produces one transaction whose length is drawn uniformly from
// [Options.MinTxnLength, Options.MaxTxnLength] (or fixed at
// Options.OpsPerTxn, if set), with each micro-op an :r or :w chosen by
// an equal-probability coin flip on a randomly selected active key. It
// blocks on the rate limiter, if configured, until ctx allows the next
// operation or ctx is done.
func (g *Generator) Next(ctx context.Context) (history.Txn, error) {
	length := g.txnLength()
	mops := make([]history.Mop, 0, length)
	for i := 0; i < length; i++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return history.Txn{}, fmt.Errorf("workload: rate limiter wait: %w", err)
			}
		}
		slot := g.pickSlot()

		if g.rng.Intn(2) == 0 {
			key := g.touch(slot)
			mops = append(mops, history.Mop{Op: history.OpRead, Key: key})
			continue
		}
		key := g.writeTo(slot)
		v, ok := g.nextWrite[key]
		if !ok {
			v = 1
		}
		g.nextWrite[key] = v + 1
		mops = append(mops, history.Mop{Op: history.OpWrite, Key: key, Value: v})
	}

	txn := history.Txn{ID: history.TxnID(g.nextTxnID), Outcome: history.OutcomeOK, Value: mops}
	g.nextTxnID++
	return txn, nil
}
