package checkrun

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/sccdriver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cyclicHistory builds a two-transaction history whose dependency graph
// forms a cycle: T1 reads a value only T2 ever writes (a wr edge,
// T2->T1), while T1 precedes T2 in recording order (a realtime edge,
// T1->T2) — the two edges close a cycle regardless of how the analyzer's
// anomaly table ultimately names it.
func cyclicHistory() *history.History {
	return &history.History{Txns: []history.Txn{
		{ID: 1, Outcome: history.OutcomeOK, Value: []history.Mop{
			{Op: history.OpRead, Key: "x", Value: 99},
		}},
		{ID: 2, Outcome: history.OutcomeOK, Value: []history.Mop{
			{Op: history.OpWrite, Key: "x", Value: 99},
		}},
	}}
}

func TestRunFindsAnomalyAndMarksInvalid(t *testing.T) {
	opts := config.Options{Models: []string{"strong-serializable"}, HistoryFile: "(test)"}
	require.NoError(t, opts.Validate())

	res, err := Run(context.Background(), discardLogger(), cyclicHistory(), opts, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	require.False(t, res.Verdict.Valid)
	require.NotEmpty(t, res.Verdict.Anomalies)
}

func TestRunStreamsOneProgressEventPerSCC(t *testing.T) {
	opts := config.Options{Models: []string{"strong-serializable"}, HistoryFile: "(test)"}
	require.NoError(t, opts.Validate())

	var events []sccdriver.SCCEvent
	_, err := Run(context.Background(), discardLogger(), cyclicHistory(), opts, func(e sccdriver.SCCEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 2, events[0].SCCSize)
}

func TestRunSkipsLostUpdateScanWhenDisabled(t *testing.T) {
	opts := config.Options{Models: []string{"serializable"}, HistoryFile: "(test)", CheckLostUpdate: false}
	require.NoError(t, opts.Validate())

	res, err := Run(context.Background(), discardLogger(), cyclicHistory(), opts, nil)
	require.NoError(t, err)
	require.Nil(t, res.LostUpdates)
}

func TestRunMarksUnknownOnEmptyHistory(t *testing.T) {
	opts := config.Options{Models: []string{"serializable"}, HistoryFile: "(test)"}
	require.NoError(t, opts.Validate())

	res, err := Run(context.Background(), discardLogger(), &history.History{}, opts, nil)
	require.NoError(t, err)
	require.True(t, res.Verdict.Valid)
	require.True(t, res.Verdict.Unknown, "an empty transaction graph is inconclusive even though nothing prohibited was found")
}
