package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deepagent"

// Collectors groups the Prometheus series recorded by the agent loop. A nil
// *Collectors is valid and records nothing.
type Collectors struct {
	inferenceTotal    *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	toolTotal         *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	delegationTotal   *prometheus.CounterVec
	invokeTotal       *prometheus.CounterVec
	iterations        *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		inferenceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inference_calls_total",
				Help:      "Inference calls by agent and status.",
			},
			[]string{"agent", "status"},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Inference call duration in seconds by agent.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		toolTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_executions_total",
				Help:      "Tool executions by tool and status.",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool execution duration in seconds by tool.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		delegationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delegations_total",
				Help:      "Subagent delegations by subagent and outcome.",
			},
			[]string{"subagent", "outcome"},
		),
		invokeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Agent invocations by agent and terminal status.",
			},
			[]string{"agent", "status"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_iterations",
				Help:      "Loop iterations used per invocation.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
			},
			[]string{"agent"},
		),
	}
	for _, col := range []prometheus.Collector{
		c.inferenceTotal, c.inferenceDuration, c.toolTotal, c.toolDuration,
		c.delegationTotal, c.invokeTotal, c.iterations,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveInference records one inference call.
func (c *Collectors) ObserveInference(agent string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.inferenceTotal.WithLabelValues(agent, status(err)).Inc()
	c.inferenceDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ObserveTool records one tool dispatch.
func (c *Collectors) ObserveTool(tool string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.toolTotal.WithLabelValues(tool, status(err)).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveDelegation records a delegation attempt; outcome is a short label
// such as "completed", "exhausted", "unknown" or "error".
func (c *Collectors) ObserveDelegation(subagent, outcome string) {
	if c == nil {
		return
	}
	c.delegationTotal.WithLabelValues(subagent, outcome).Inc()
}

// ObserveInvoke records a finished invocation.
func (c *Collectors) ObserveInvoke(agent, status string, iterations int) {
	if c == nil {
		return
	}
	c.invokeTotal.WithLabelValues(agent, status).Inc()
	c.iterations.WithLabelValues(agent).Observe(float64(iterations))
}
