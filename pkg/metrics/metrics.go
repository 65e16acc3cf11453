// Package metrics exports zfs invocation counters and durations in the
// Prometheus text format.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/elee1766/gozfs/pkg/runner"
)

var Module = fx.Module("metrics",
	fx.Provide(New),
)

const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultDryRun = "dry_run"
)

// Metrics implements runner.Recorder.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ runner.Recorder = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		invocations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gozfs_invocations_total",
				Help: "Total number of zfs invocations by subcommand, mode and result",
			},
			[]string{"subcommand", "mode", "result"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gozfs_invocation_duration_seconds",
				Help:    "Duration of executed zfs invocations",
				Buckets: []float64{
					0.01, // 10ms
					0.1,  // 100ms
					1,    // 1s
					10,   // 10s
					60,   // 1m
					600,  // 10m
				},
			},
			[]string{"subcommand", "mode"},
		),
	}
}

// Record counts inv. Echoed dry-run invocations are counted but not timed.
func (m *Metrics) Record(_ context.Context, inv runner.Invocation) error {
	subcommand := ""
	if len(inv.Args) > 0 {
		subcommand = inv.Args[0]
	}
	mode := string(inv.Mode)

	result := ResultOK
	switch {
	case inv.DryRun:
		result = ResultDryRun
	case inv.Err != nil:
		result = ResultError
	}
	m.invocations.WithLabelValues(subcommand, mode, result).Inc()

	if !inv.DryRun {
		m.duration.WithLabelValues(subcommand, mode).Observe(inv.Duration.Seconds())
	}
	return nil
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
