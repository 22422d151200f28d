// Package metrics holds the Prometheus collectors of the assistant.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// Session holds the collectors for the live session. A nil *Session is
// valid and records nothing.
type Session struct {
	registry *prometheus.Registry

	AudioFramesTotal    *prometheus.CounterVec
	PlaybackChunksTotal *prometheus.CounterVec
	VideoFramesTotal    *prometheus.CounterVec
	InterruptionsTotal  prometheus.Counter
	ToolCallsTotal      *prometheus.CounterVec
	ToolBatchDuration   prometheus.Histogram
	RemindersTotal      *prometheus.CounterVec
	State               *prometheus.GaugeVec
	ConnectionsTotal    *prometheus.CounterVec
}

// New creates the collectors on a private registry
func New(namespace string) *Session {
	if namespace == "" {
		namespace = "assistant"
	}

	registry := prometheus.NewRegistry()

	audioFrames := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_total",
			Help:      "Captured microphone frames by outcome",
		},
		[]string{"outcome"},
	)

	playbackChunks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_chunks_total",
			Help:      "Inbound audio chunks by outcome",
		},
		[]string{"outcome"},
	)

	videoFrames := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_frames_total",
			Help:      "Sampler ticks by outcome",
		},
		[]string{"outcome"},
	)

	interruptions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Model turns interrupted by the user",
		},
	)

	toolCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls executed by name",
		},
		[]string{"name"},
	)

	toolBatchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_batch_duration_seconds",
			Help:      "Time to answer one tool-call batch",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	reminders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder lifecycle events",
		},
		[]string{"event"},
	)

	state := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "1 for the current connection state",
		},
		[]string{"state"},
	)

	connections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connection attempts by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		audioFrames,
		playbackChunks,
		videoFrames,
		interruptions,
		toolCalls,
		toolBatchDuration,
		reminders,
		state,
		connections,
	)

	return &Session{
		registry:            registry,
		AudioFramesTotal:    audioFrames,
		PlaybackChunksTotal: playbackChunks,
		VideoFramesTotal:    videoFrames,
		InterruptionsTotal:  interruptions,
		ToolCallsTotal:      toolCalls,
		ToolBatchDuration:   toolBatchDuration,
		RemindersTotal:      reminders,
		State:               state,
		ConnectionsTotal:    connections,
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Session) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Session) Registry() *prometheus.Registry {
	return m.registry
}

// AudioFrame records a captured frame: "sent" or "dropped"
func (m *Session) AudioFrame(outcome string) {
	if m == nil {
		return
	}
	m.AudioFramesTotal.WithLabelValues(outcome).Inc()
}

// PlaybackChunk records an inbound chunk: "scheduled" or "dropped"
func (m *Session) PlaybackChunk(outcome string) {
	if m == nil {
		return
	}
	m.PlaybackChunksTotal.WithLabelValues(outcome).Inc()
}

// VideoFrame records a sampler tick: "sent", "skipped" or "failed"
func (m *Session) VideoFrame(outcome string) {
	if m == nil {
		return
	}
	m.VideoFramesTotal.WithLabelValues(outcome).Inc()
}

// Interruption records a flushed model turn
func (m *Session) Interruption() {
	if m == nil {
		return
	}
	m.InterruptionsTotal.Inc()
}

// ToolBatch records one answered batch
func (m *Session) ToolBatch(calls []entities.ToolCall, duration time.Duration) {
	if m == nil {
		return
	}
	for _, c := range calls {
		m.ToolCallsTotal.WithLabelValues(c.Name).Inc()
	}
	m.ToolBatchDuration.Observe(duration.Seconds())
}

// Reminder records a reminder event: "scheduled", "fired" or "cancelled"
func (m *Session) Reminder(event string) {
	if m == nil {
		return
	}
	m.RemindersTotal.WithLabelValues(event).Inc()
}

// Connection records the result of a connection attempt
func (m *Session) Connection(result string) {
	if m == nil {
		return
	}
	m.ConnectionsTotal.WithLabelValues(result).Inc()
}

// SetState marks state as the current connection state
func (m *Session) SetState(state entities.ConnectionState) {
	if m == nil {
		return
	}
	for _, s := range []entities.ConnectionState{
		entities.StateDisconnected,
		entities.StateConnecting,
		entities.StateConnected,
		entities.StateError,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(string(s)).Set(v)
	}
}
