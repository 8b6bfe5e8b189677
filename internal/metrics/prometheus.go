package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the streaming bridge
type Metrics struct {
	// Event stream metrics
	EventsReceived *prometheus.CounterVec
	ParseErrors    prometheus.Counter
	Reconnects     prometheus.Counter
	ConnectionUp   prometheus.Gauge

	// Send metrics
	EnvelopesSent prometheus.Counter
	SendFailures  prometheus.Counter

	// Capture metrics
	FramesCaptured  prometheus.Counter
	RecordingActive prometheus.Gauge

	// Upload metrics
	UploadsStarted prometheus.Counter
	UploadFailures prometheus.Counter
}

// NewMetrics creates all bridge metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// packages can be constructed repeatedly.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_events_received_total",
			Help: "Total number of inbound stream events by kind",
		}, []string{"kind"}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_event_parse_errors_total",
			Help: "Total number of malformed stream payloads skipped",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_stream_reconnects_total",
			Help: "Total number of stream reconnect attempts",
		}),
		ConnectionUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_connection_up",
			Help: "Whether the event stream is currently established (0 or 1)",
		}),
		EnvelopesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_envelopes_sent_total",
			Help: "Total number of outbound envelopes accepted by the backend",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_send_failures_total",
			Help: "Total number of outbound envelopes that failed to deliver",
		}),
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_frames_captured_total",
			Help: "Total number of microphone frames encoded and handed off",
		}),
		RecordingActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_recording_active",
			Help: "Whether a capture pipeline is currently open (0 or 1)",
		}),
		UploadsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_uploads_started_total",
			Help: "Total number of file uploads that passed validation",
		}),
		UploadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_upload_failures_total",
			Help: "Total number of uploads rejected by the backend or network",
		}),
	}
}

// RecordEvent increments the received counter for one event kind
func (m *Metrics) RecordEvent(kind string) {
	m.EventsReceived.WithLabelValues(kind).Inc()
}

// RecordParseError increments the malformed payload counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// RecordReconnect increments the reconnect attempts counter
func (m *Metrics) RecordReconnect() {
	m.Reconnects.Inc()
}

// SetConnected sets the connection gauge
func (m *Metrics) SetConnected(up bool) {
	if up {
		m.ConnectionUp.Set(1)
	} else {
		m.ConnectionUp.Set(0)
	}
}

// RecordSend increments the sent counter
func (m *Metrics) RecordSend() {
	m.EnvelopesSent.Inc()
}

// RecordSendFailure increments the send failures counter
func (m *Metrics) RecordSendFailure() {
	m.SendFailures.Inc()
}

// RecordFrameCaptured increments the captured frames counter
func (m *Metrics) RecordFrameCaptured() {
	m.FramesCaptured.Inc()
}

// SetRecording sets the recording gauge
func (m *Metrics) SetRecording(active bool) {
	if active {
		m.RecordingActive.Set(1)
	} else {
		m.RecordingActive.Set(0)
	}
}

// RecordUploadStarted increments the uploads started counter
func (m *Metrics) RecordUploadStarted() {
	m.UploadsStarted.Inc()
}

// RecordUploadFailure increments the upload failures counter
func (m *Metrics) RecordUploadFailure() {
	m.UploadFailures.Inc()
}
