// Package metrics counts suite outcomes and writes them as a Prometheus
// textfile for the node exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Metrics holds the suite's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ScenariosTotal   *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	BannersTotal     *prometheus.CounterVec
	BrokenImages     *prometheus.CounterVec
	LastRunSuccess   prometheus.Gauge
}

// New creates the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScenariosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appcheck_scenarios_total",
			Help: "Scenarios executed, by final status.",
		}, []string{"scenario", "status"}),
		ScenarioDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appcheck_scenario_duration_seconds",
			Help:    "Wall time of each scenario including session setup.",
			Buckets: []float64{5, 15, 30, 60, 120, 300},
		}, []string{"scenario"}),
		BannersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appcheck_banner_outcomes_total",
			Help: "Launch banner heuristic outcomes.",
		}, []string{"outcome"}),
		BrokenImages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appcheck_broken_images_total",
			Help: "Broken images found by scans.",
		}, []string{"mode"}),
		LastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "appcheck_last_run_success",
			Help: "1 when the last suite run had no failed or errored scenario.",
		}),
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveScenario records a finished scenario.
func (m *Metrics) ObserveScenario(r core.ScenarioResult) {
	m.ScenariosTotal.WithLabelValues(r.Name, r.Status.String()).Inc()
	m.ScenarioDuration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
}

// ObserveBanner records a banner heuristic outcome.
func (m *Metrics) ObserveBanner(outcome string) {
	m.BannersTotal.WithLabelValues(outcome).Inc()
}

// AddBrokenImages records broken images found by a scan.
func (m *Metrics) AddBrokenImages(mode string, n int) {
	if n <= 0 {
		return
	}
	m.BrokenImages.WithLabelValues(mode).Add(float64(n))
}

// ObserveSuite sets the run-level gauge.
func (m *Metrics) ObserveSuite(r *core.SuiteResult) {
	if r.Success() {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}

// WriteTextfile writes every collector to path in the text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
