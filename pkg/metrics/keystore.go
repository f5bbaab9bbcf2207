// Package metrics exposes Prometheus collectors for keystore operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

var (
	keystoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dagkeystore",
		Subsystem: "keystore",
		Name:      "operations_total",
		Help:      "Count of keystore operations.",
	}, []string{"operation", "status"})
	keystoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dagkeystore",
		Subsystem: "keystore",
		Name:      "operation_duration_seconds",
		Help:      "Duration of keystore operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// status maps an operation result to a label value. Keystore errors report
// their code so rejected input can be told apart from internal faults.
func status(err error) string {
	if err == nil {
		return "success"
	}
	var kerr *keyerr.Error
	if errors.As(err, &kerr) {
		return string(kerr.Code)
	}
	return "error"
}

// ObserveKeystore records one keystore operation and its duration since started.
func ObserveKeystore(operation string, err error, started time.Time) {
	s := status(err)
	keystoreOperationsTotal.WithLabelValues(operation, s).Inc()
	keystoreOperationDuration.WithLabelValues(operation, s).Observe(time.Since(started).Seconds())
}

// Keystore satisfies keystore.Metrics.
type Keystore struct{}

// Observe records the operation through ObserveKeystore.
func (Keystore) Observe(operation string, err error, started time.Time) {
	ObserveKeystore(operation, err, started)
}
