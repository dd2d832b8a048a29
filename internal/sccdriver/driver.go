// Package sccdriver orchestrates the whole-history search (spec §4.6):
// split the graph into strongly connected components, search each SCC
// independently and in parallel against the anomaly table, and fall back
// to a cheaper, coarser cycle search if a component's wall-clock budget
// runs out before the table is exhausted.
package sccdriver

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/dbhist/histcheck/internal/anomaly"
	"github.com/dbhist/histcheck/internal/classify"
	"github.com/dbhist/histcheck/internal/relset"
	"github.com/dbhist/histcheck/internal/search"
	"github.com/dbhist/histcheck/internal/txgraph"
)

var (
	tracer = otel.Tracer("histcheck.sccdriver")
	meter  = otel.Meter("histcheck.sccdriver")
)

// fallbackCascade is the sequence of widening rel-set projections tried,
// in order, once a component's per-SCC timeout fires before the anomaly
// table finishes: the narrowest, cheapest-to-search graph first, each
// wider set a strict superset of the last, ending at relset.All.
var fallbackCascade = []relset.Set{
	relset.Of(relset.WW),
	relset.Of(relset.WW, relset.Realtime, relset.Process),
	relset.Of(relset.WW, relset.WR),
	relset.Of(relset.WW, relset.WR, relset.Realtime, relset.Process),
	relset.All,
}

// Options configures a Driver.
type Options struct {
	// Timeout bounds each SCC's table search. Zero disables the timeout
	// (search runs to completion or exhaustion).
	Timeout time.Duration
	// Concurrency is the maximum number of SCCs searched in parallel.
	// golang.org/x/sync/semaphore.Weighted is used instead of
	// errgroup.Group because a timed-out SCC must still contribute its
	// fallback-cascade result to the final report rather than aborting
	// the whole run — errgroup's fail-fast cancellation on first error
	// is the wrong shape here; every SCC's result, partial or complete,
	// is valid data, never a failure.
	Concurrency int64

	// OnSCCDone, if set, is called once per searched SCC (singleton SCCs
	// excluded) after its table search — and fallback cascade, if it timed
	// out — finishes. Callers use this to drive a progress stream
	// (cmd/histcheck's TUI, cmd/histcheckd's WebSocket) without the driver
	// itself depending on any transport. Called from the searching
	// goroutine, so it must not block on anything the caller hasn't made
	// concurrency-safe.
	OnSCCDone func(SCCEvent)
}

// SCCEvent reports the outcome of searching one strongly connected
// component.
type SCCEvent struct {
	SCCSize   int
	TimedOut  bool
	Anomalies []string
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = int64(runtime.GOMAXPROCS(0))
	}
	return o
}

// Witness records where one anomaly was found: its name, the cycle that
// proves it, and the SCC (vertex set) it was found within.
type Witness struct {
	Name string
	Cycle search.Cycle
	SCC   []txgraph.Vertex
}

// TimeoutRecord is the synthetic :cycle-search-timeout record spec §4.6
// requires when an SCC's table search doesn't finish in time: the spec
// that was still running when the clock fired, every spec fully checked
// before it (in priority order), and the size of the SCC involved.
type TimeoutRecord struct {
	SpecName     string
	SpecsChecked []string
	SCCSize      int
}

// Report is the combined result of searching every SCC in a history's
// dependency graph.
type Report struct {
	// Found is the set of anomaly names that were found anywhere in the
	// graph, keyed by name.
	Found map[string]bool
	// Witnesses holds the first witness recorded for each found name.
	Witnesses map[string]Witness
	// TimeoutRecords holds one entry per SCC whose table search did not
	// finish within Options.Timeout and fell back to the coarser cascade.
	TimeoutRecords []TimeoutRecord
}

// Driver runs the SCC-at-a-time search described above.
//
// Thread Safety: Run is safe to call concurrently on the same Driver;
// internal bookkeeping (metrics) is initialized once regardless of
// caller count.
type Driver struct {
	opts   Options
	logger *slog.Logger
	table  []anomaly.Spec
	rels   []relset.Set

	metricsOnce    sync.Once
	sccLatency     metric.Float64Histogram
	sccTimeouts    metric.Int64Counter
	anomaliesFound metric.Int64Counter
}

// New builds a Driver against the full anomaly table (spec §4.4).
func New(opts Options, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	table := anomaly.Table()
	return &Driver{
		opts:   opts.withDefaults(),
		logger: logger,
		table:  table,
		rels:   anomaly.AllRelSets(table),
	}
}

func (d *Driver) initMetrics() {
	d.metricsOnce.Do(func() {
		var err error
		d.sccLatency, err = meter.Float64Histogram("histcheck_scc_search_duration_seconds",
			metric.WithDescription("Time spent searching one strongly connected component"),
			metric.WithUnit("s"),
		)
		if err != nil {
			d.logger.Error("failed to init scc_search_duration_seconds histogram", slog.String("error", err.Error()))
		}
		d.sccTimeouts, err = meter.Int64Counter("histcheck_scc_timeouts_total",
			metric.WithDescription("Number of SCCs whose table search timed out and fell back to the cascade"),
		)
		if err != nil {
			d.logger.Error("failed to init scc_timeouts_total counter", slog.String("error", err.Error()))
		}
		d.anomaliesFound, err = meter.Int64Counter("histcheck_anomalies_found_total",
			metric.WithDescription("Number of anomaly witnesses found, by name"),
		)
		if err != nil {
			d.logger.Error("failed to init anomalies_found_total counter", slog.String("error", err.Error()))
		}
	})
}

// Run decomposes g into SCCs and searches each, up to Options.Concurrency
// at a time.
func (d *Driver) Run(ctx context.Context, g *txgraph.Graph) (*Report, error) {
	d.initMetrics()

	ctx, span := tracer.Start(ctx, "sccdriver.Run",
		trace.WithAttributes(attribute.Int("graph.vertices", g.NumVertices())),
	)
	defer span.End()

	sccs := txgraph.SCC(ctx, g)
	span.SetAttributes(attribute.Int("graph.scc_count", len(sccs)))

	report := &Report{Found: make(map[string]bool), Witnesses: make(map[string]Witness)}
	var mu sync.Mutex

	sem := semaphore.NewWeighted(d.opts.Concurrency)
	var wg sync.WaitGroup

	for _, scc := range sccs {
		if len(scc) < 2 {
			continue // a singleton with no self-loop edge can never be a cycle
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context canceled while waiting for a slot
		}
		wg.Add(1)
		go func(scc []txgraph.Vertex) {
			defer wg.Done()
			defer sem.Release(1)
			d.searchSCC(ctx, g, scc, report, &mu)
		}(scc)
	}
	wg.Wait()

	d.logger.Info("scc search complete",
		slog.Int("sccs", len(sccs)),
		slog.Int("anomalies_found", len(report.Found)),
		slog.Int("timed_out", len(report.TimeoutRecords)),
	)
	span.SetStatus(codes.Ok, "")
	return report, nil
}

func (d *Driver) searchSCC(ctx context.Context, g *txgraph.Graph, scc []txgraph.Vertex, report *Report, mu *sync.Mutex) {
	ctx, span := tracer.Start(ctx, "sccdriver.searchSCC",
		trace.WithAttributes(attribute.Int("scc.size", len(scc))),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if d.sccLatency != nil {
			d.sccLatency.Record(ctx, time.Since(start).Seconds())
		}
	}()

	sub := g.Induced(scc)
	cache := txgraph.NewProjectionCache(sub)
	cache.WarmUp(d.rels)

	sccCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		sccCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	var found []string
	var checked []string
	timedOut := false
	timeoutSpec := ""
	for _, spec := range d.table {
		select {
		case <-sccCtx.Done():
			timedOut = true
		default:
		}
		if timedOut {
			timeoutSpec = spec.Name()
			break
		}

		cyc, ok := spec.Find(sccCtx, cache)
		if !ok && sccCtx.Err() != nil {
			// The clock fired while this spec was searching.
			timedOut = true
			timeoutSpec = spec.Name()
			break
		}
		checked = append(checked, spec.Name())
		if !ok {
			continue
		}
		name := classify.Classify(cyc).Name()
		if d.record(mu, report, name, cyc, scc) {
			found = append(found, name)
		}
	}

	if !timedOut {
		d.emitSCCEvent(len(scc), false, found)
		return
	}

	span.AddEvent("scc_search_timed_out")
	if d.sccTimeouts != nil {
		d.sccTimeouts.Add(ctx, 1)
	}
	mu.Lock()
	report.TimeoutRecords = append(report.TimeoutRecords, TimeoutRecord{
		SpecName:     timeoutSpec,
		SpecsChecked: checked,
		SCCSize:      len(scc),
	})
	mu.Unlock()

	if name, ok := d.runFallbackCascade(ctx, cache, scc, report, mu); ok {
		found = append(found, name)
	}
	d.emitSCCEvent(len(scc), true, found)
}

func (d *Driver) emitSCCEvent(size int, timedOut bool, anomalies []string) {
	if d.opts.OnSCCDone == nil {
		return
	}
	d.opts.OnSCCDone(SCCEvent{SCCSize: size, TimedOut: timedOut, Anomalies: anomalies})
}

// runFallbackCascade tries successively wider projections with the plain
// trivial-transition search, so a timed-out SCC still contributes
// whatever cycle it can find before giving up entirely. The witness it
// finds is labeled via internal/classify, the same as a table hit.
func (d *Driver) runFallbackCascade(ctx context.Context, cache *txgraph.ProjectionCache, scc []txgraph.Vertex, report *Report, mu *sync.Mutex) (string, bool) {
	for _, rels := range fallbackCascade {
		g := cache.Get(rels)
		cyc, ok := search.FindCycle(ctx, g)
		if !ok {
			continue
		}
		result := classify.Classify(cyc)
		d.record(mu, report, result.Name(), cyc, scc)
		return result.Name(), true
	}
	d.logger.Warn("scc timed out with no witness found even in the full fallback cascade",
		slog.Int("scc_size", len(scc)),
	)
	return "", false
}

func (d *Driver) record(mu *sync.Mutex, report *Report, name string, cyc search.Cycle, scc []txgraph.Vertex) bool {
	mu.Lock()
	defer mu.Unlock()
	if report.Found[name] {
		return false
	}
	report.Found[name] = true
	report.Witnesses[name] = Witness{Name: name, Cycle: cyc, SCC: scc}
	if d.anomaliesFound != nil {
		d.anomaliesFound.Add(context.Background(), 1, metric.WithAttributes(attribute.String("anomaly", name)))
	}
	return true
}
