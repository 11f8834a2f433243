package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics tracks cart, wishlist and checkout activity.
type StorefrontMetrics struct {
	remoteWrites *prometheus.CounterVec
	checkouts    *prometheus.CounterVec
	managers     prometheus.Gauge
}

// NewStorefrontMetrics registers the storefront collectors. A nil registerer
// yields a no-op recorder.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	remoteWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_remote_writes_total",
		Help: "Cart and wishlist writes against the backing store by operation and outcome.",
	}, []string{"operation", "outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})
	managers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_managers",
		Help: "Per-user cart managers currently held in memory.",
	})
	reg.MustRegister(remoteWrites, checkouts, managers)
	return &StorefrontMetrics{
		remoteWrites: remoteWrites,
		checkouts:    checkouts,
		managers:     managers,
	}
}

func (m *StorefrontMetrics) ObserveRemoteWrite(operation string, err error) {
	if m == nil || m.remoteWrites == nil {
		return
	}
	m.remoteWrites.WithLabelValues(normalizeLabel(operation), outcomeOf(err)).Inc()
}

func (m *StorefrontMetrics) ObserveCheckout(err error) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(outcomeOf(err)).Inc()
}

func (m *StorefrontMetrics) SetActiveManagers(n int) {
	if m == nil || m.managers == nil {
		return
	}
	m.managers.Set(float64(n))
}
