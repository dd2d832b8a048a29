package consistency

import (
	"testing"

	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/stretchr/testify/require"
)

func TestReadUncommittedProhibitsNothing(t *testing.T) {
	require.Empty(t, Prohibited(ReadUncommitted))
}

func TestReadCommittedProhibitsG0Only(t *testing.T) {
	p := Prohibited(ReadCommitted)
	require.True(t, p["G0"])
	require.True(t, p["G0-process"])
	require.False(t, p["G1c"])
}

func TestSerializableProhibitsEveryBareKind(t *testing.T) {
	p := Prohibited(Serializable)
	for _, name := range []string{"G0", "G1c", "G-single", "G-nonadjacent", "G2-item", "G2"} {
		require.True(t, p[name], "serializable must prohibit %s", name)
	}
	require.False(t, p["G0-realtime"], "serializable alone does not require real-time order")
}

func TestStrongSerializableAddsRealtimeVariants(t *testing.T) {
	p := Prohibited(StrongSerializable)
	require.True(t, p["G0-realtime"])
	require.True(t, p["G2-realtime"])
}

func TestModelsAreMonotonicallyStricter(t *testing.T) {
	models := Models()
	for i := 1; i < len(models); i++ {
		prev := Prohibited(models[i-1])
		cur := Prohibited(models[i])
		for name := range prev {
			require.True(t, cur[name], "%s must prohibit everything %s does (missing %s)", models[i], models[i-1], name)
		}
	}
}

func TestValidRejectsUnknownModel(t *testing.T) {
	require.False(t, Valid(Model("eventual")))
	require.True(t, Valid(Serializable))
}

func TestProhibitedAllUnionsAcrossModels(t *testing.T) {
	p := ProhibitedAll([]Model{ReadUncommitted, ReadCommitted})
	require.True(t, p["G0"], "the union must include what read-committed alone prohibits")
	require.False(t, p["G1c"])
}

func TestProhibitedAllEmptyForNoModels(t *testing.T) {
	require.Empty(t, ProhibitedAll(nil))
}

func TestImplyingReturnsBareAndBothSuffixedVariants(t *testing.T) {
	names := Implying(anomaly.GSingle)
	require.ElementsMatch(t, []string{"G-single", "G-single-process", "G-single-realtime"}, names)
}
