// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package executor

import (
	"time"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//go:generate mockgen -source metrics.go -destination metrics_mock.go -package executor

// Metrics receives observations of finished transactions. Implementations
// must be safe for concurrent use.
type Metrics interface {
	TransactionExecuted(summary *kiln.TxSummary, duration time.Duration)
	FaultContained()
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) TransactionExecuted(*kiln.TxSummary, time.Duration) {}
func (NoopMetrics) FaultContained()                                   {}

const (
	namespace = "kiln"
	subsystem = "executor"
)

// Collector exports transaction metrics to prometheus.
type Collector struct {
	transactions *prometheus.CounterVec
	rejected     prometheus.Counter
	faults       prometheus.Counter
	energyUsed   prometheus.Histogram
	duration     prometheus.Histogram
}

var _ Metrics = (*Collector)(nil)

// NewCollector creates a collector registering its metrics with the given
// registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	factory := promauto.With(registerer)
	return &Collector{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transactions_total",
			Help:      "number of executed transactions by result code",
		}, []string{"code"}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_transactions_total",
			Help:      "number of transactions rejected before execution",
		}),
		faults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "contained_faults_total",
			Help:      "number of unexpected interpreter or repository faults converted into internal errors",
		}),
		energyUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "energy_used",
			Help:      "energy used per transaction",
			Buckets:   prometheus.ExponentialBuckets(21_000, 2, 10),
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "time spent executing a transaction",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

func (c *Collector) TransactionExecuted(summary *kiln.TxSummary, duration time.Duration) {
	code := kiln.ResultSuccess
	if result := summary.Result(); result != nil {
		code = result.Code()
	}
	c.transactions.WithLabelValues(code.String()).Inc()
	if summary.IsRejected() {
		c.rejected.Inc()
	}
	c.energyUsed.Observe(float64(summary.EnergyUsed()))
	c.duration.Observe(duration.Seconds())
}

func (c *Collector) FaultContained() {
	c.faults.Inc()
}
