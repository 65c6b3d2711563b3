// Package metrics exports tick loop counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"beltworks.dev/internal/sim/field"
)

type Collector struct {
	stepSeconds prometheus.Histogram
	messages    *prometheus.CounterVec
	items       prometheus.Counter
	energy      *prometheus.CounterVec
	tick        prometheus.Gauge
	observers   prometheus.Gauge
}

// New registers the collectors on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		stepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of one field step.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Routed messages by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_delivered_total",
			Help:      "Items absorbed by a receiver.",
		}),
		energy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "energy_watt_ticks_total",
			Help:      "Energy offered and delivered over power links.",
		}, []string{"kind"}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tick",
			Help:      "Last completed tick.",
		}),
		observers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers",
			Help:      "Connected observer sessions.",
		}),
	}
	for _, col := range []prometheus.Collector{c.stepSeconds, c.messages, c.items, c.energy, c.tick, c.observers} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ObserveStep(rep field.Report, d time.Duration) {
	c.stepSeconds.Observe(d.Seconds())
	c.messages.WithLabelValues("accepted").Add(float64(rep.Accepted))
	c.messages.WithLabelValues("refunded").Add(float64(rep.Refunded))
	c.messages.WithLabelValues("partial").Add(float64(rep.Partial))
	c.messages.WithLabelValues("out_of_bounds").Add(float64(rep.OutOfBounds))
	c.items.Add(float64(rep.ItemsDelivered))
	c.energy.WithLabelValues("offered").Add(float64(rep.EnergyOffered))
	c.energy.WithLabelValues("delivered").Add(float64(rep.EnergyDelivered))
	c.tick.Set(float64(rep.Tick))
}

func (c *Collector) SetObservers(n int) { c.observers.Set(float64(n)) }
