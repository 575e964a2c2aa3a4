// Package metrics exposes keychain client activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/keychain/pkg/keychain"
)

// Recorder implements keychain.Recorder on Prometheus collectors.
type Recorder struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	setPlansTotal     *prometheus.CounterVec
}

// New registers the keychain collectors on reg. A nil reg uses a fresh
// private registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keychain_operations_total",
				Help: "Total number of keychain operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keychain_operation_duration_seconds",
				Help:    "Duration of keychain operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"operation"},
		),
		setPlansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keychain_set_plans_total",
				Help: "Writes chosen by set after probing the item",
			},
			[]string{"plan"},
		),
	}
}

// RecordOperation implements keychain.Recorder.
func (r *Recorder) RecordOperation(op, outcome string, elapsed time.Duration) {
	r.operationsTotal.WithLabelValues(op, outcome).Inc()
	r.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordSetPlan implements keychain.Recorder.
func (r *Recorder) RecordSetPlan(plan string) {
	r.setPlansTotal.WithLabelValues(plan).Inc()
}

// OperationsTotal returns the operation counter for testing.
func (r *Recorder) OperationsTotal() *prometheus.CounterVec {
	return r.operationsTotal
}

// OperationDuration returns the duration histogram for testing.
func (r *Recorder) OperationDuration() *prometheus.HistogramVec {
	return r.operationDuration
}

// SetPlansTotal returns the set plan counter for testing.
func (r *Recorder) SetPlansTotal() *prometheus.CounterVec {
	return r.setPlansTotal
}

// WriteTextfile writes everything registered on g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

var _ keychain.Recorder = (*Recorder)(nil)
