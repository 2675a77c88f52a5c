package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
type Metrics struct {
	TypesDefined  prometheus.Counter
	Issued        prometheus.Counter
	Revoked       prometheus.Counter
	Destroyed     prometheus.Counter
	Swept         prometheus.Counter
	SweepDuration prometheus.Histogram
}

// New creates a Metrics instance with all certificate metrics registered.
func New() *Metrics {
	return &Metrics{
		TypesDefined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_certificate_types_defined_total",
			Help: "Total number of certificate types defined",
		}),
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		Destroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_destroyed_total",
			Help: "Total number of credentials destroyed by their owners",
		}),
		Swept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_swept_total",
			Help: "Total number of expired credentials purged by the sweeper",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credreg_sweep_duration_seconds",
			Help:    "Duration of per-block expiry sweeps",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSweep records a sweep pass. Call with time.Now() from the start
// of the pass.
func (m *Metrics) ObserveSweep(start time.Time, swept int) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
	m.Swept.Add(float64(swept))
}
