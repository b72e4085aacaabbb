package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Telemetry is the single process-wide timer/statistics aggregator
// spec.md §9 explicitly permits ("a single process-wide timer/statistics
// aggregator is acceptable; all other state is transaction-local"). It
// replaces the original implementation's ad hoc Mutex<Timers> global with
// otel histograms, one instrument per named phase (apply, unrecord, record,
// output, alive_retrieve, alive_graph, alive_output, alive_contents,
// repair_context, check_cyclic_paths, find_alive).
type Telemetry struct {
	meter      metric.Meter
	histograms map[string]metric.Float64Histogram
	Log        Logger
}

// New creates a Telemetry using the global otel MeterProvider. Call
// otel.SetMeterProvider before constructing one to route measurements to a
// real backend; with no provider configured, otel's no-op implementation
// is used and measurements are simply discarded.
func New(log Logger) *Telemetry {
	if log == nil {
		log = NopLogger{}
	}
	meter := otel.Meter("github.com/orneryd/pristine")
	t := &Telemetry{meter: meter, histograms: make(map[string]metric.Float64Histogram), Log: log}
	for _, name := range []string{
		"apply", "unrecord", "record", "output",
		"alive_retrieve", "alive_graph", "alive_output", "alive_contents",
		"repair_context", "check_cyclic_paths", "find_alive",
	} {
		h, err := meter.Float64Histogram(
			"pristine."+name+".duration_ms",
			metric.WithDescription("duration of the "+name+" phase, in milliseconds"),
		)
		if err == nil {
			t.histograms[name] = h
		}
	}
	return t
}

// StartTimer begins timing a named phase and returns a func to call when
// the phase completes; it records the elapsed duration into that phase's
// histogram.
func (t *Telemetry) StartTimer(name string) func() {
	if t == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		if h, ok := t.histograms[name]; ok {
			h.Record(context.Background(), float64(elapsed.Microseconds())/1000.0)
		}
		if t.Log != nil {
			t.Log.Debugf("%s took %s", name, elapsed)
		}
	}
}
