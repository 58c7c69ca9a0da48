package irc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Rejection reasons reported by send_rejected_total.
const (
	reasonArgumentCount  = "argument_count"
	reasonArgumentFormat = "argument_format"
	reasonTooLong        = "too_long"
	reasonEncoding       = "encoding"
	reasonClosed         = "closed"
)

// metrics holds the collectors of one connection.
type metrics struct {
	received   prometheus.Counter
	sent       prometheus.Counter
	rejected   *prometheus.CounterVec
	queueDepth prometheus.Gauge
	delay      prometheus.Histogram
	faults     *prometheus.CounterVec
}

func newMetrics(connID string) *metrics {
	labels := prometheus.Labels{"conn": connID}

	return &metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "irc",
			Subsystem:   "reader",
			Name:        "lines_received_total",
			Help:        "Inbound lines parsed and queued.",
			ConstLabels: labels,
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "irc",
			Subsystem:   "sender",
			Name:        "lines_sent_total",
			Help:        "Outbound lines written to the socket.",
			ConstLabels: labels,
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "irc",
			Subsystem:   "sender",
			Name:        "send_rejected_total",
			Help:        "Send calls rejected before queueing.",
			ConstLabels: labels,
		}, []string{"reason"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "irc",
			Subsystem:   "sender",
			Name:        "outbound_queue_depth",
			Help:        "Lines waiting to be written.",
			ConstLabels: labels,
		}),
		delay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "irc",
			Subsystem:   "sender",
			Name:        "flood_delay_seconds",
			Help:        "Pause after each written line.",
			ConstLabels: labels,
			Buckets:     []float64{0, 0.1, 0.25, 0.5, 1, 1.5, 2, 5},
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "irc",
			Name:        "worker_faults_total",
			Help:        "Worker loops stopped by a socket fault.",
			ConstLabels: labels,
		}, []string{"worker"}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.received, m.sent, m.rejected, m.queueDepth, m.delay, m.faults}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}

	var err error
	for _, c := range m.collectors() {
		err = multierr.Append(err, reg.Register(c))
	}
	return err
}

func (m *metrics) unregister(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range m.collectors() {
		reg.Unregister(c)
	}
}

func (m *metrics) observeDelay(d time.Duration) {
	m.delay.Observe(d.Seconds())
}
