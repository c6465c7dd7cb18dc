package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/buildcfg"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Output metrics
	OutputBytesTotal     metric.Int64Counter
	AssetsInlinedTotal   metric.Int64Counter
	CompressedBytesTotal metric.Int64Counter

	// Dev server metrics
	RebuildsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments bind to the meter provider installed at the time of the first call.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"buildcfg.builds.total",
		metric.WithDescription("Total number of builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"buildcfg.builds.errors.total",
		metric.WithDescription("Total number of failed builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"buildcfg.builds.duration",
		metric.WithDescription("Duration of builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytesTotal, _ = meter.Int64Counter(
		"buildcfg.outputs.bytes.total",
		metric.WithDescription("Total bytes of build outputs written"),
		metric.WithUnit("By"),
	)

	m.AssetsInlinedTotal, _ = meter.Int64Counter(
		"buildcfg.assets.inlined.total",
		metric.WithDescription("Total number of assets inlined as data URLs"),
		metric.WithUnit("{asset}"),
	)

	m.CompressedBytesTotal, _ = meter.Int64Counter(
		"buildcfg.outputs.compressed.bytes.total",
		metric.WithDescription("Total bytes of precompressed outputs written"),
		metric.WithUnit("By"),
	)

	m.RebuildsTotal, _ = meter.Int64Counter(
		"buildcfg.devserver.rebuilds.total",
		metric.WithDescription("Total number of dev server rebuilds"),
		metric.WithUnit("{build}"),
	)

	return m
}
