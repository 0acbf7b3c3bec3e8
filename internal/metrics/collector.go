// Package metrics counts productionalization outcomes for the node exporter
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"foundry/internal/provision"
)

// Collector holds Prometheus metrics for one foundry run.
type Collector struct {
	registry    *prometheus.Registry
	itemsTotal  *prometheus.CounterVec
	runDuration *prometheus.GaugeVec
}

// NewCollector creates a collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundry_productionalize_items_total",
				Help: "Productionalization items attempted, by feature and outcome",
			},
			[]string{"feature", "outcome"},
		),
		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "foundry_run_duration_seconds",
				Help: "Wall time of the last run, by command",
			},
			[]string{"command"},
		),
	}
	c.registry.MustRegister(c.itemsTotal, c.runDuration)
	return c
}

// Record implements provision.Recorder.
func (c *Collector) Record(feature provision.Feature, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.itemsTotal.WithLabelValues(string(feature), outcome).Inc()
}

// ObserveRun records how long command took.
func (c *Collector) ObserveRun(command string, d time.Duration) {
	c.runDuration.WithLabelValues(command).Set(d.Seconds())
}

// WriteToTextfile writes every metric in the Prometheus text format. The file
// is replaced atomically.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

var _ provision.Recorder = (*Collector)(nil)
