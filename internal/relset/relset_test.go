package relset

import "testing"

import "github.com/stretchr/testify/require"

func TestOfAndContains(t *testing.T) {
	s := Of(WW, RW)
	require.True(t, s.Contains(WW))
	require.True(t, s.Contains(RW))
	require.False(t, s.Contains(WR))
}

func TestSubset(t *testing.T) {
	label := Of(WW)
	rels := Of(WW, WR)
	require.True(t, label.Subset(rels), "ww alone must be a subset of {ww,wr}")
	require.False(t, rels.Subset(label), "{ww,wr} is not a subset of {ww}")
}

func TestSubsetVsIntersects(t *testing.T) {
	// A multi-label edge {ww,rw} does NOT project onto {ww} under the
	// tight "subset" semantics, even though it shares ww with it.
	label := Of(WW, RW)
	rels := Of(WW)
	require.False(t, label.Subset(rels))
	require.True(t, label.Intersects(rels))
}

func TestUnionAndEmpty(t *testing.T) {
	require.True(t, Empty.Empty())
	u := Of(WW).Union(Of(RW))
	require.Equal(t, Of(WW, RW), u)
	require.False(t, u.Empty())
}

func TestMembersOrdering(t *testing.T) {
	s := Of(Realtime, WW, RW)
	members := s.Members()
	require.Equal(t, []Rel{WW, RW, Realtime}, members)
}

func TestAllContainsEveryRel(t *testing.T) {
	require.True(t, All.Contains(WW))
	require.True(t, All.Contains(WR))
	require.True(t, All.Contains(RW))
	require.True(t, All.Contains(Process))
	require.True(t, All.Contains(Realtime))
}

func TestString(t *testing.T) {
	require.Equal(t, "", Empty.String())
	require.Equal(t, "rw,ww", Of(WW, RW).String())
}
