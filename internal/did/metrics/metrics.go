package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
type Metrics struct {
	DelegatesAdded   prometheus.Counter
	DelegatesRevoked prometheus.Counter
	OwnersChanged    prometheus.Counter
	AttributesAdded  prometheus.Counter
}

// New creates a Metrics instance with all identity metrics registered.
func New() *Metrics {
	return &Metrics{
		DelegatesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_did_delegates_added_total",
			Help: "Total number of identity delegates granted",
		}),
		DelegatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_did_delegates_revoked_total",
			Help: "Total number of identity delegates revoked",
		}),
		OwnersChanged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_did_owners_changed_total",
			Help: "Total number of identity ownership transfers",
		}),
		AttributesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_did_attributes_added_total",
			Help: "Total number of identity attributes written",
		}),
	}
}
