// Package checkrun executes one end-to-end check — build the graph,
// search every strongly connected component, optionally scan for lost
// updates, and compute a verdict — so cmd/histcheck and cmd/histcheckd
// share the exact same core plumbing instead of each reimplementing it
// around their own entrypoint (cobra.Command vs gin.Context).
package checkrun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dbhist/histcheck/internal/analyzer"
	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/consistency"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/lostupdate"
	"github.com/dbhist/histcheck/internal/sccdriver"
	"github.com/dbhist/histcheck/internal/telemetry"
	"github.com/dbhist/histcheck/internal/verdict"
)

// Result bundles everything one check run produces, for both a terminal
// summary printer and internal/render.
type Result struct {
	Opts        config.Options
	Report      *sccdriver.Report
	Verdict     verdict.Result
	LostUpdates []lostupdate.Pair
	Duration    time.Duration
}

// Run executes a single check of h against opts: build the graph, search
// every SCC, optionally scan for lost updates, and compute the final
// verdict. progress, if non-nil, receives one event per completed SCC —
// the seam cmd/histcheck's TUI and cmd/histcheckd's websocket stream
// both hang off.
func Run(ctx context.Context, logger *slog.Logger, h *history.History, opts config.Options, progress func(sccdriver.SCCEvent)) (*Result, error) {
	start := time.Now()

	an := analyzer.New()
	graph, _, _, err := an.Analyze(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("analyzing history: %w", err)
	}

	driver := sccdriver.New(sccdriver.Options{
		Timeout:     time.Duration(opts.SCCTimeoutMS) * time.Millisecond,
		Concurrency: int64(opts.Concurrency),
		OnSCCDone:   progress,
	}, logger)

	report, err := driver.Run(ctx, graph)
	if err != nil {
		return nil, fmt.Errorf("running scc search: %w", err)
	}

	var lostPairs []lostupdate.Pair
	if opts.CheckLostUpdate {
		lostPairs = lostupdate.Find(h)
		telemetry.RecordLostUpdates(len(lostPairs))
	}

	// The anomaly map spec §4.8 feeds to Compute is uniform over
	// classified cycles and the two synthetic unknown-kinds: a search
	// that never got to look at any transactions (an empty history) is
	// just as inconclusive as one that ran out of time.
	found := make(map[string]bool, len(report.Found)+2)
	for name := range report.Found {
		found[name] = true
	}
	if len(report.TimeoutRecords) > 0 {
		found[verdict.KindCycleSearchTimeout] = true
	}
	if graph.NumVertices() == 0 {
		found[verdict.KindEmptyTransactionGraph] = true
	}

	models := make([]consistency.Model, len(opts.Models))
	for i, m := range opts.Models {
		models[i] = consistency.Model(m)
	}
	extras := make([]anomaly.Kind, len(opts.Anomalies))
	for i, a := range opts.Anomalies {
		extras[i] = anomaly.Kind(a)
	}

	result := verdict.Compute(models, extras, found)

	for name := range report.Found {
		telemetry.RecordAnomaly(name)
	}
	dur := time.Since(start)
	telemetry.RecordCheck(strings.Join(opts.Models, ","), dur.Seconds(), result.Valid, result.Unknown)

	logger.Info("check complete",
		slog.Any("models", opts.Models),
		slog.Bool("valid", result.Valid),
		slog.Bool("unknown", result.Unknown),
		slog.Int("anomalies", len(result.Anomalies)),
		slog.Int("lost_updates", len(lostPairs)),
		slog.Duration("duration", dur),
	)

	return &Result{Opts: opts, Report: report, Verdict: result, LostUpdates: lostPairs, Duration: dur}, nil
}
