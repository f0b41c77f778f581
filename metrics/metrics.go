package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	prometheus.Collector
}

type Metrics struct {
	TMIMsgsCount    Observer
	TMICommandCount Observer
	ComplementsSent Observer
	ResolveRequests Observer
	TokenRefreshes  Observer
	ResolveLatency  Observer
	CommandLatency  Observer
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TMIMsgsCount,
		m.TMICommandCount,
		m.ComplementsSent,
		m.ResolveRequests,
		m.TokenRefreshes,
		m.ResolveLatency,
		m.CommandLatency,
	}
}

// Observe observes val on o if o is not nil.
func Observe(o Observer, val float64, labels ...string) {
	if o != nil {
		o.Observe(val, labels...)
	}
}
