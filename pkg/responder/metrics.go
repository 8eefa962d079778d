package responder

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solrand"

// Publish results used as label values.
const (
	resultOK               = "ok"
	resultAlreadyCompleted = "already_completed"
	resultError            = "error"
)

// metrics holds the responder collectors.
type metrics struct {
	polls     prometheus.Counter
	pending   prometheus.Gauge
	published *prometheus.CounterVec
	duration  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "responder",
			Name:      "polls_total",
			Help:      "Number of pending request polls",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "responder",
			Name:      "pending_requests",
			Help:      "Pending requests seen by the last poll",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "responder",
			Name:      "published_total",
			Help:      "Publish attempts by result",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "responder",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish and confirm a random value",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
	}
	reg.MustRegister(m.polls, m.pending, m.published, m.duration)
	return m
}
