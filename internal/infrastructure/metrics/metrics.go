// Package metrics exposes sync and command metrics in the Prometheus text
// format.
//
// The collector keeps its own registry, so tests and multiple instances do
// not share global state. It records the same events the InfluxDB writer
// does; either, both or neither may be enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/influxdb"
)

const namespace = "kakubridge"

// Collector holds the bridge's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	entities        *prometheus.CounterVec
	lastCycle       prometheus.Gauge
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New creates a collector with the Go runtime and process collectors
// registered alongside the bridge metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by trigger source and outcome.",
		}, []string{"source", "outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Duration of sync cycles.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"source"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_entities_total",
			Help:      "Entities handled by sync cycles, by result.",
		}, []string{"result"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_cycle_timestamp_seconds",
			Help:      "Start time of the most recent sync cycle.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_commands_total",
			Help:      "Commands sent to the hub by action and outcome.",
		}, []string{"action", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hub_command_duration_seconds",
			Help:      "Latency of hub commands, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.cycles,
		c.cycleDuration,
		c.entities,
		c.lastCycle,
		c.commands,
		c.commandDuration,
	)
	return c
}

// WriteSyncCycle records one finished cycle.
func (c *Collector) WriteSyncCycle(stats influxdb.CycleStats) {
	c.cycles.WithLabelValues(stats.Source, outcome(stats.Err)).Inc()
	c.cycleDuration.WithLabelValues(stats.Source).Observe(stats.Duration.Seconds())

	c.entities.WithLabelValues("registered").Add(float64(stats.Registered))
	c.entities.WithLabelValues("updated").Add(float64(stats.Updated))
	c.entities.WithLabelValues("skipped").Add(float64(stats.Skipped))
	c.entities.WithLabelValues("failed").Add(float64(stats.Failed))

	if !stats.StartedAt.IsZero() {
		c.lastCycle.Set(float64(stats.StartedAt.Unix()))
	}
}

// WriteCommand records one hub command. The entity id is not a label, it
// would give every entity its own series.
func (c *Collector) WriteCommand(_ int, action string, latency time.Duration, err error) {
	c.commands.WithLabelValues(action, outcome(err)).Inc()
	c.commandDuration.WithLabelValues(action).Observe(latency.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Value returns the current value of a counter or gauge series, or the
// sample count of a histogram. ok is false when the series does not exist.
func (c *Collector) Value(name string, labels map[string]string) (float64, bool) {
	families, err := c.registry.Gather()
	if err != nil {
		return 0, false
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if !labelsMatch(m.GetLabel(), labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), true
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), true
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func labelsMatch(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) != len(want) {
		return false
	}
	for _, l := range got {
		if want[l.GetName()] != l.GetValue() {
			return false
		}
	}
	return true
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
