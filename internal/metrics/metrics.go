// Package metrics records per-run pipeline counters and writes them in the
// Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for one harmonize run.
type Metrics struct {
	registry *prometheus.Registry

	// Rows read from each source before filtering
	RowsRead *prometheus.CounterVec

	// Rows dropped by source and reason (aggregate, unmatched, missing, ...)
	RowsDropped *prometheus.CounterVec

	// Rows written per output table
	RowsWritten *prometheus.CounterVec

	// Wall time of each harmonizer
	RunDuration *prometheus.GaugeVec
}

// New creates a Metrics instance backed by its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RowsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harmonize_rows_read_total",
			Help: "Rows read from a source dataset",
		}, []string{"source"}),

		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harmonize_rows_dropped_total",
			Help: "Rows dropped while harmonizing a source, by reason",
		}, []string{"source", "reason"}),

		RowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harmonize_rows_written_total",
			Help: "Rows written to an output table",
		}, []string{"table"}),

		RunDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harmonize_run_duration_seconds",
			Help: "Duration of the last harmonizer run by source",
		}, []string{"source"}),
	}
}

// ObserveSource records the counters of one finished harmonizer
func (m *Metrics) ObserveSource(source string, read int, dropped map[string]int, d time.Duration) {
	if m == nil {
		return
	}
	m.RowsRead.WithLabelValues(source).Add(float64(read))
	for reason, n := range dropped {
		m.RowsDropped.WithLabelValues(source, reason).Add(float64(n))
	}
	m.RunDuration.WithLabelValues(source).Set(d.Seconds())
}

// ObserveWritten records rows written to a table
func (m *Metrics) ObserveWritten(table string, rows int) {
	if m != nil {
		m.RowsWritten.WithLabelValues(table).Add(float64(rows))
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path atomically
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
