// Package telemetry wires up this module's Prometheus metrics and
// OpenTelemetry providers. Metric/tracer construction follows the
// package-level promauto-vars-plus-Record-funcs convention the rest of
// this codebase's routing metrics use; provider setup follows the
// dag executor's otel.Tracer/otel.Meter convention, extended to actually
// install SDK providers (the executor only assumed a provider was
// already registered by its caller).
package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	checkLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "histcheck",
		Name:      "check_duration_seconds",
		Help:      "Time spent checking one history end to end",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"model", "valid"})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "histcheck",
		Name:      "checks_total",
		Help:      "Total checks run, by model and outcome",
	}, []string{"model", "outcome"}) // outcome: valid, invalid, unknown

	anomaliesFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "histcheck",
		Name:      "anomalies_found_total",
		Help:      "Total anomaly witnesses found, by name",
	}, []string{"anomaly"})

	lostUpdatesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "histcheck",
		Name:      "lost_updates_found_total",
		Help:      "Total lost-update pairs found by the linear scan",
	})
)

// RecordCheck records one completed check's latency and outcome.
func RecordCheck(model string, durationSec float64, valid, unknown bool) {
	outcome := "invalid"
	switch {
	case unknown:
		outcome = "unknown"
	case valid:
		outcome = "valid"
	}
	checkLatency.WithLabelValues(model, fmt.Sprintf("%t", valid)).Observe(durationSec)
	checksTotal.WithLabelValues(model, outcome).Inc()
}

// RecordAnomaly records one found anomaly witness by name.
func RecordAnomaly(name string) {
	anomaliesFoundTotal.WithLabelValues(name).Inc()
}

// RecordLostUpdates records n lost-update pairs found in one scan.
func RecordLostUpdates(n int) {
	lostUpdatesFoundTotal.Add(float64(n))
}

// Providers bundles the installed tracer and meter providers so callers
// can hold onto their Shutdown methods.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers, returning the first error.
func (p *Providers) Shutdown(ctx context.Context) error {
	var err error
	if p.TracerProvider != nil {
		if e := p.TracerProvider.Shutdown(ctx); e != nil && err == nil {
			err = fmt.Errorf("shutting down tracer provider: %w", e)
		}
	}
	if p.MeterProvider != nil {
		if e := p.MeterProvider.Shutdown(ctx); e != nil && err == nil {
			err = fmt.Errorf("shutting down meter provider: %w", e)
		}
	}
	return err
}

// SetupStdout installs tracer and meter providers that print spans and
// metrics to stdout — useful for cmd/histcheck, where a human is
// watching a single run rather than scraping a long-lived daemon.
func SetupStdout(ctx context.Context) (*Providers, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	otel.SetTracerProvider(tp)

	metricExp, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	otel.SetMeterProvider(mp)

	return &Providers{TracerProvider: tp, MeterProvider: mp}, nil
}

// SetupPrometheus installs a tracer provider identical to SetupStdout's
// but backs metrics with the Prometheus exporter instead, for
// cmd/histcheckd — a long-lived daemon that is scraped rather than read
// from its own stdout. The returned *sdkmetric.MeterProvider's
// registered Prometheus collector is automatically available via
// promhttp.Handler() / prometheus.DefaultGatherer since otelprometheus
// registers against the default registry.
func SetupPrometheus(ctx context.Context) (*Providers, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	otel.SetTracerProvider(tp)

	promExp, err := otelprometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: building prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
	otel.SetMeterProvider(mp)

	return &Providers{TracerProvider: tp, MeterProvider: mp}, nil
}
