package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicenav_capture_sessions_active",
		Help: "Number of capture sessions currently recording",
	})

	totalSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_capture_sessions_total",
		Help: "Capture sessions by outcome",
	}, []string{"outcome"})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicenav_recording_duration_seconds",
		Help:    "Wall-clock length of recordings in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_transcription_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"provider", "status"})

	transcriptionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicenav_transcription_latency_seconds",
		Help:    "End-to-end transcription latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider"})

	pollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicenav_transcription_poll_attempts",
		Help:    "Status checks needed before a poll-based job finished",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 60, 120},
	})

	// Command metrics
	commandsInterpreted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_commands_interpreted_total",
		Help: "Interpreted commands by action kind",
	}, []string{"kind"})

	// Retention metrics
	uploadsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenav_uploads_swept_total",
		Help: "Upload files removed by the retention sweep",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voicenav_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenav_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"stage"}) // stage: "captured", "encoded", "uploaded"
)

// SessionMetrics tracks metrics for a single capture session
type SessionMetrics struct {
	sessionID        string
	startTime        time.Time
	transcribeStart  time.Time
	provider         string
	mu               sync.Mutex
	recordingStarted bool
}

// NewSessionMetrics creates a metrics tracker for a capture session
func NewSessionMetrics(sessionID, provider string) *SessionMetrics {
	return &SessionMetrics{
		sessionID: sessionID,
		provider:  provider,
	}
}

// RecordRecordingStart marks the session as recording
func (m *SessionMetrics) RecordRecordingStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordingStarted {
		return
	}
	m.recordingStarted = true
	m.startTime = time.Now()
	activeSessions.Inc()
}

// RecordRecordingEnd closes the recording with an outcome label
// (completed, empty, device_error, aborted, failed).
func (m *SessionMetrics) RecordRecordingEnd(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recordingStarted {
		return
	}
	m.recordingStarted = false
	activeSessions.Dec()
	recordingDuration.Observe(time.Since(m.startTime).Seconds())
	totalSessions.WithLabelValues(outcome).Inc()
}

// RecordTranscribeStart records the start of transcription
func (m *SessionMetrics) RecordTranscribeStart() {
	m.mu.Lock()
	m.transcribeStart = time.Now()
	m.mu.Unlock()
}

// RecordTranscribeEnd records the end of transcription
func (m *SessionMetrics) RecordTranscribeEnd(success bool) {
	m.mu.Lock()
	started := m.transcribeStart
	m.mu.Unlock()

	var latency time.Duration
	if !started.IsZero() {
		latency = time.Since(started)
	}
	RecordTranscription(m.provider, success, latency)
}

// RecordTranscription records one transcription outcome for a provider
func RecordTranscription(provider string, success bool, latency time.Duration) {
	if latency > 0 {
		transcriptionLatency.WithLabelValues(provider).Observe(latency.Seconds())
	}
	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(provider, status).Inc()
}

// RecordPollAttempts records how many status checks a job needed
func RecordPollAttempts(attempts int) {
	pollAttempts.Observe(float64(attempts))
}

// RecordCommand records an interpreted command by action kind
func RecordCommand(kind string) {
	commandsInterpreted.WithLabelValues(kind).Inc()
}

// RecordSwept records files removed by the retention sweep
func RecordSwept(n int) {
	uploadsSwept.Add(float64(n))
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes handled at a pipeline stage
func RecordAudioBytes(stage string, bytes int) {
	audioBytesProcessed.WithLabelValues(stage).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
