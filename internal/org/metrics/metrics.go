package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the organization module.
type Metrics struct {
	OrgsCreated   prometheus.Counter
	OrgsSuspended prometheus.Counter
}

// New creates a Metrics instance with all organization metrics registered.
func New() *Metrics {
	return &Metrics{
		OrgsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_organizations_created_total",
			Help: "Total number of organizations registered",
		}),
		OrgsSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credreg_organizations_suspended_total",
			Help: "Total number of organization suspensions",
		}),
	}
}
