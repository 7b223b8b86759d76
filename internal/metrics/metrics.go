// metrics.go - Metrics collection for the hidden-account engine.
//
// A Collector owns its own prometheus registry so several engines (and tests) never collide.
// A nil *Collector is valid and records nothing.

package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Predefined metric names
const (
	MetricProofGenerationTime = "poof_proof_generation_seconds"
	MetricOperationCount      = "poof_operations_total"
	MetricRelayerPolls        = "poof_relayer_polls_total"
	MetricEventsScanned       = "poof_events_scanned_total"
	MetricErrorCount          = "poof_errors_total"
)

// Collector manages metrics collection
type Collector struct {
	registry   *prometheus.Registry
	proofTime  *prometheus.HistogramVec
	operations *prometheus.CounterVec
	polls      *prometheus.CounterVec
	events     prometheus.Counter
	errors     *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		proofTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricProofGenerationTime,
			Help:    "Time spent generating a proof, by circuit.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"circuit"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOperationCount,
			Help: "Pool operations prepared, by entry point.",
		}, []string{"method"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRelayerPolls,
			Help: "Relayer job polling outcomes.",
		}, []string{"outcome"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEventsScanned,
			Help: "NewAccount events retrieved from the chain.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricErrorCount,
			Help: "Errors, by type.",
		}, []string{"type"}),
	}
	c.registry.MustRegister(c.proofTime, c.operations, c.polls, c.events, c.errors)
	return c
}

// Registry exposes the underlying prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

func (c *Collector) RecordProofGeneration(circuit string, d time.Duration) {
	if c == nil {
		return
	}
	c.proofTime.WithLabelValues(circuit).Observe(d.Seconds())
}

func (c *Collector) RecordOperation(method string) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(method).Inc()
}

func (c *Collector) RecordPoll(outcome string) {
	if c == nil {
		return
	}
	c.polls.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordEvents(n int) {
	if c == nil {
		return
	}
	c.events.Add(float64(n))
}

func (c *Collector) RecordError(errorType string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(errorType).Inc()
}

// Summary flattens every series into "name{labels}" -> value. Histograms report their sample count and sum.
func (c *Collector) Summary() (map[string]float64, error) {
	out := make(map[string]float64)
	if c == nil {
		return out, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName() + labelString(m.GetLabel())
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key+"_count"] = float64(m.GetHistogram().GetSampleCount())
				out[key+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out, nil
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func labelString[T labelPair](labels []T) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.GetName() + "=" + l.GetValue()
	}
	sort.Strings(parts)
	s := "{"
	for i, p := range parts {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s + "}"
}
