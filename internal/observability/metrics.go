// Package observability provides prometheus metrics and otel trace helpers
// shared by the orchestrator components.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the orchestrator metric set.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	QueueDepth    prometheus.Gauge
	RunningRuns   prometheus.Gauge
	ModelDuration prometheus.Histogram
	TokensTotal   *prometheus.CounterVec
	ToolsTotal    *prometheus.CounterVec
	ToolDuration  *prometheus.HistogramVec
	RetriesTotal  prometheus.Counter
	LockWait      prometheus.Histogram
	AssemblyTime  prometheus.Histogram
}

// NewMetrics registers the orchestrator metrics on reg (the default
// registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "runs_total",
			Help:      "Completed runs by terminal state.",
		}, []string{"state"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro",
			Name:      "queue_depth",
			Help:      "Runs waiting for admission.",
		}),
		RunningRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro",
			Name:      "running_runs",
			Help:      "Runs currently admitted.",
		}),
		ModelDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "model_call_duration_seconds",
			Help:      "Duration of model streaming calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "tokens_total",
			Help:      "Model tokens consumed by direction.",
		}, []string{"direction"}),
		ToolsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and status.",
		}, []string{"tool", "status"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"tool"}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "model_retries_total",
			Help:      "Model call retry attempts.",
		}),
		LockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "session_lock_wait_seconds",
			Help:      "Time spent waiting for the session lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		AssemblyTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "context_assembly_seconds",
			Help:      "Duration of context assembly.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}
