package classify

import (
	"testing"

	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/search"
	"github.com/stretchr/testify/require"
)

func v(n int64) history.TxnID { return history.TxnID(n) }

func TestClassifyPureWWIsG0(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.WW)},
		{From: v(2), To: v(1), Label: relset.Of(relset.WW)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.G0, r.Kind)
	require.Equal(t, anomaly.VariantNone, r.Variant)
	require.Equal(t, "G0", r.Name())
}

func TestClassifyMixedWWWRIsG1c(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.WW)},
		{From: v(2), To: v(1), Label: relset.Of(relset.WR)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.G1c, r.Kind)
}

func TestClassifySingleRWIsGSingle(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.RW)},
		{From: v(2), To: v(3), Label: relset.Of(relset.WW)},
		{From: v(3), To: v(1), Label: relset.Of(relset.WR)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.GSingle, r.Kind)
}

func TestClassifyNonadjacentRWIsGNonadjacent(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.RW)},
		{From: v(2), To: v(3), Label: relset.Of(relset.WW)},
		{From: v(3), To: v(4), Label: relset.Of(relset.RW)},
		{From: v(4), To: v(1), Label: relset.Of(relset.WW)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.GNonadjacent, r.Kind)
}

func TestClassifyAdjacentRWIsG2Item(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.RW)},
		{From: v(2), To: v(1), Label: relset.Of(relset.RW)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.G2Item, r.Kind)
}

func TestClassifyWrapAdjacencyCountsAsAdjacent(t *testing.T) {
	// rw as the last edge and rw as the first edge are adjacent via wrap.
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.RW)},
		{From: v(2), To: v(3), Label: relset.Of(relset.WW)},
		{From: v(3), To: v(1), Label: relset.Of(relset.RW)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.G2Item, r.Kind, "rw at position 0 and position 2 wrap-adjoin in a 3-cycle")
}

func TestClassifyRealtimeDominatesProcess(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.WW, relset.Process)},
		{From: v(2), To: v(1), Label: relset.Of(relset.WW, relset.Realtime)},
	}
	r := Classify(cyc)
	require.Equal(t, anomaly.VariantRealtime, r.Variant)
	require.Equal(t, "G0-realtime", r.Name())
}

func TestClassifyPanicsOnEmptyCycle(t *testing.T) {
	require.Panics(t, func() { Classify(nil) })
}

func TestClassifyPanicsWhenNoStructuralEdge(t *testing.T) {
	cyc := search.Cycle{
		{From: v(1), To: v(2), Label: relset.Of(relset.Process)},
		{From: v(2), To: v(1), Label: relset.Of(relset.Realtime)},
	}
	require.Panics(t, func() { Classify(cyc) })
}
