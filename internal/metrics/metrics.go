package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "focuslink"

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing, so components can be built without a registry.
type Metrics struct {
	framesSent      prometheus.Counter
	framesSkipped   *prometheus.CounterVec
	payloadBytes    prometheus.Histogram
	focusScore      prometheus.Gauge
	connectionState prometheus.Gauge
	transportErrors prometheus.Counter
	serverErrors    prometheus.Counter
	reconnects      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames handed to the channel",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Capture cycles that ended without a send, by reason",
		}, []string{"reason"}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_payload_bytes",
			Help:      "Size of encoded frame payloads",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 10),
		}),
		focusScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "focus_score",
			Help:      "Last focus score reported by the service",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 erroring, 4 closing)",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Channel-level failures",
		}),
		serverErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_errors_total",
			Help:      "Error notices received from the service",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after a transport error",
		}),
	}
	reg.MustRegister(
		m.framesSent,
		m.framesSkipped,
		m.payloadBytes,
		m.focusScore,
		m.connectionState,
		m.transportErrors,
		m.serverErrors,
		m.reconnects,
	)
	return m
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// FrameSent records a frame payload of n bytes.
func (m *Metrics) FrameSent(n int) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.payloadBytes.Observe(float64(n))
}

// FrameSkipped records a cycle that ended early.
func (m *Metrics) FrameSkipped(reason string) {
	if m == nil {
		return
	}
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// FocusScore records the latest score.
func (m *Metrics) FocusScore(score int) {
	if m == nil {
		return
	}
	m.focusScore.Set(float64(score))
}

// ConnectionState records the numeric connection state.
func (m *Metrics) ConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

// TransportError counts a channel failure.
func (m *Metrics) TransportError() {
	if m == nil {
		return
	}
	m.transportErrors.Inc()
}

// ServerError counts an error notice from the service.
func (m *Metrics) ServerError() {
	if m == nil {
		return
	}
	m.serverErrors.Inc()
}

// ReconnectScheduled counts a scheduled reconnect.
func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
