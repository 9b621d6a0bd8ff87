package producer

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records producer activity per topic.
type Metrics struct {
	sent     *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the producer collectors and registers them with reg.
// Pass a dedicated registry when running more than one client per process
// with different label sets.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "producer",
			Name:      "sent_total",
			Help:      "Number of task records acknowledged by the brokers.",
		}, []string{"topic"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "producer",
			Name:      "errors_total",
			Help:      "Number of task records that could not be delivered.",
		}, []string{"topic"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "producer",
			Name:      "send_duration_seconds",
			Help:      "Time between handing a record to the producer and its outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"topic"}),
	}
	for _, c := range []prometheus.Collector{m.sent, m.failed, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "cannot register producer metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observe(topic string, start time.Time, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.WithLabelValues(topic).Inc()
	} else {
		m.sent.WithLabelValues(topic).Inc()
	}
	m.duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
}

// Sent returns the counter of acknowledged records for topic.
func (m *Metrics) Sent(topic string) prometheus.Counter {
	return m.sent.WithLabelValues(topic)
}

// Failed returns the counter of undelivered records for topic.
func (m *Metrics) Failed(topic string) prometheus.Counter {
	return m.failed.WithLabelValues(topic)
}
