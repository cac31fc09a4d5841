// Package metrics exports dispatch activity as Prometheus metrics.
//
// labrun is a batch tool, so metrics are written once per run to a file in
// the node_exporter textfile format rather than served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// OutcomeOK labels a command or run that finished without error. Failed
// ones are labelled with their dispatch error code.
const OutcomeOK = "ok"

// Observer is a dispatch.Observer that counts and times commands.
//
// Thread-safety: an Observer follows the dispatcher and is driven from one
// goroutine; its collectors are safe to gather concurrently.
type Observer struct {
	registry *prometheus.Registry
	now      func() time.Time
	started  time.Time

	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

var _ dispatch.Observer = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithClock replaces time.Now, for deterministic durations in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Observer) {
		o.now = now
	}
}

// NewObserver creates an Observer with its own registry.
func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labrun",
			Name:      "commands_total",
			Help:      "Commands dispatched, by command type and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labrun",
			Name:      "command_duration_seconds",
			Help:      "Wall time spent in each command handler.",
			Buckets:   []float64{0.001, 0.01, 0.1, 1, 10, 60, 300, 1800},
		}, []string{"command"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labrun",
			Name:      "runs_total",
			Help:      "Protocol runs, by outcome.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labrun",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.registry.MustRegister(o.commands, o.duration, o.runs, o.lastRun)
	return o
}

// Registry returns the registry holding the observer's collectors.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// CommandStarted implements dispatch.Observer.
func (o *Observer) CommandStarted(_ int, _ protocol.Command) {
	o.started = o.now()
}

// CommandFinished implements dispatch.Observer.
func (o *Observer) CommandFinished(_ int, cmd protocol.Command, err error) {
	o.commands.WithLabelValues(cmd.Type, outcome(err)).Inc()
	o.duration.WithLabelValues(cmd.Type).Observe(o.now().Sub(o.started).Seconds())
}

// RunFinished records the outcome of a whole run.
func (o *Observer) RunFinished(err error) {
	o.runs.WithLabelValues(outcome(err)).Inc()
	o.lastRun.Set(float64(o.now().Unix()))
}

// WriteFile writes every collected metric to path in text exposition
// format. The file is replaced atomically.
func (o *Observer) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := dispatch.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
