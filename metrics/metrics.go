// Package metrics exposes optimizer and scenario outcomes as Prometheus
// metrics, pushed to a gateway at the end of a batch.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	strategy "github.com/uw-midsun/fwxvi-strategy"
)

// Scenario outcome labels.
const (
	StatusOK           = "ok"
	StatusFailed       = "failed"
	StatusNotConverged = "not_converged"
)

// Collector holds the strategy metrics on a dedicated registry.
type Collector struct {
	Registry      *prometheus.Registry
	Scenarios     *prometheus.CounterVec
	Evaluations   *prometheus.HistogramVec
	Runtime       *prometheus.HistogramVec
	FinalDistance *prometheus.GaugeVec
	FinalSOC      *prometheus.GaugeVec
}

// New returns a Collector with every metric registered.
func New() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		Scenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "strategy_scenarios_total", Help: "Scenarios run, by outcome."},
			[]string{"status"},
		),
		Evaluations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "strategy_optimizer_evaluations", Help: "Objective evaluations per optimization.", Buckets: prometheus.ExponentialBuckets(100, 4, 8)},
			[]string{"method"},
		),
		Runtime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "strategy_optimizer_runtime_seconds", Help: "Optimizer wall time in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 4, 8)},
			[]string{"method"},
		),
		FinalDistance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "strategy_final_distance_meters", Help: "Distance covered by the best profile."},
			[]string{"scenario"},
		),
		FinalSOC: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "strategy_final_soc_joules", Help: "Battery energy left at the end of the best profile."},
			[]string{"scenario"},
		),
	}
	c.Registry.MustRegister(c.Scenarios, c.Evaluations, c.Runtime, c.FinalDistance, c.FinalSOC)
	return c
}

// Observe records one batch outcome.
func (c *Collector) Observe(out strategy.Outcome) {
	if out.Err != nil {
		c.Scenarios.WithLabelValues(StatusFailed).Inc()
		return
	}
	best := out.Report.Best
	if best.Converged {
		c.Scenarios.WithLabelValues(StatusOK).Inc()
	} else {
		c.Scenarios.WithLabelValues(StatusNotConverged).Inc()
	}
	method := string(best.Method)
	c.Evaluations.WithLabelValues(method).Observe(float64(best.Evaluations))
	c.Runtime.WithLabelValues(method).Observe(best.Runtime.Seconds())
	c.FinalDistance.WithLabelValues(out.Name).Set(out.Report.Sim.FinalDistance)
	c.FinalSOC.WithLabelValues(out.Name).Set(out.Report.Sim.FinalSOC)
}

// ObserveAll records every outcome of a batch.
func (c *Collector) ObserveAll(outs []strategy.Outcome) {
	for _, out := range outs {
		c.Observe(out)
	}
}

// Push replaces the job's metrics on the pushgateway at url.
func (c *Collector) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(c.Registry).Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
