// Package consistency maps named consistency models to the anomaly kinds
// they prohibit (spec §4.8). This is deliberately a small, static
// data-only package: none of the corpus repos ship anything resembling an
// isolation-level table (the closest analogues — policy engines, linters
// — encode rules as executable predicates over a different domain
// entirely), so there is no library to wire here; see DESIGN.md for the
// standard-library justification.
package consistency

import "github.com/dbhist/histcheck/internal/anomaly"

// Model names one of the consistency levels a history can be checked
// against.
type Model string

const (
	ReadUncommitted    Model = "read-uncommitted"
	ReadCommitted      Model = "read-committed"
	CursorStability    Model = "cursor-stability"
	RepeatableRead     Model = "repeatable-read"
	SnapshotIsolation  Model = "snapshot-isolation"
	Serializable       Model = "serializable"
	StrongSerializable Model = "strong-serializable"
)

// bare is the base (non-realtime, non-process) anomaly names prohibited
// at and above each model, each list a superset of the one before it
// (Serializable and StrongSerializable share one list; see Prohibited).
var bare = map[Model][]anomaly.Kind{
	ReadUncommitted:    {},
	ReadCommitted:      {anomaly.G0},
	CursorStability:    {anomaly.G0, anomaly.G1c},
	RepeatableRead:     {anomaly.G0, anomaly.G1c, anomaly.GSingle},
	SnapshotIsolation:  {anomaly.G0, anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent},
	Serializable:       {anomaly.G0, anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item, anomaly.G2},
	StrongSerializable: {anomaly.G0, anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item, anomaly.G2},
}

// Prohibited returns the full set of reported anomaly names (kind, or
// kind-process/kind-realtime) that violate m. StrongSerializable adds the
// -realtime variant of every bare kind, since it additionally requires
// that committed order respect wall-clock (real-time) order; every other
// model only prohibits the bare and -process variants, since process
// order is always observable but real-time order is a stronger guarantee
// this port only enforces when explicitly asked for.
func Prohibited(m Model) map[string]bool {
	kinds, ok := bare[m]
	if !ok {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(kinds)*3)
	for _, k := range kinds {
		out[string(k)] = true
		out[string(k)+"-process"] = true
	}
	if m == StrongSerializable {
		for _, k := range kinds {
			out[string(k)+"-realtime"] = true
		}
	}
	return out
}

// ProhibitedAll unions Prohibited(m) over a collection of declared models
// (spec §4.8's `anomalies-prohibited-by(models)`, since `consistency-models`
// is itself a collection rather than a single level).
func ProhibitedAll(models []Model) map[string]bool {
	out := make(map[string]bool)
	for _, m := range models {
		for name := range Prohibited(m) {
			out[name] = true
		}
	}
	return out
}

// Implying returns k's bare name plus its -process and -realtime variants
// — spec §4.8's `all-anomalies-implying(extras)`: whichever of these three
// is actually found in a history implies k was violated, so flagging k as
// an extra anomaly to prohibit must prohibit all three, not just the bare
// name.
func Implying(k anomaly.Kind) []string {
	return []string{string(k), string(k) + "-process", string(k) + "-realtime"}
}

// Models lists every model name this package understands, in ascending
// strength order.
func Models() []Model {
	return []Model{
		ReadUncommitted, ReadCommitted, CursorStability,
		RepeatableRead, SnapshotIsolation, Serializable, StrongSerializable,
	}
}

// Valid reports whether m is a recognized model name.
func Valid(m Model) bool {
	_, ok := bare[m]
	return ok
}
