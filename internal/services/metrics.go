package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepfake_videos_processed_total",
		Help: "Total number of videos processed, by outcome",
	}, []string{"outcome"})

	FramesScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deepfake_frames_scored_total",
		Help: "Total number of frames scored by the classifier",
	})

	ClassifierLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepfake_classifier_latency_seconds",
		Help:    "Latency of a single classifier call",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepfake_detection_duration_seconds",
		Help:    "Duration of a whole video detection",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	ActiveDetections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deepfake_active_detections",
		Help: "Number of videos currently being scored",
	})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deepfake_websocket_clients",
		Help: "Number of connected websocket clients",
	})
)

// Outcome labels for VideosProcessedTotal.
const (
	OutcomeReal       = "real"
	OutcomeFake       = "fake"
	OutcomeOpenError  = "open_error"
	OutcomeNoFrames   = "no_frames"
	OutcomeClassifier = "classifier_error"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
)

// Outcome maps a detection result to its metrics label.
func Outcome(v *models.VideoVerdict, err error) string {
	switch {
	case err == nil && v != nil && v.VideoStatus == models.StatusFake:
		return OutcomeFake
	case err == nil:
		return OutcomeReal
	case errors.Is(err, ErrOpen):
		return OutcomeOpenError
	case errors.Is(err, ErrNoFrames):
		return OutcomeNoFrames
	case errors.Is(err, ErrClassifier):
		return OutcomeClassifier
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

// Metrics keeps in-process counters for /api/metrics and mirrors them into
// the Prometheus collectors above.
type Metrics struct {
	totalVideos   atomic.Int64
	fakeVideos    atomic.Int64
	totalFrames   atomic.Int64
	totalErrors   atomic.Int64
	totalLatency  atomic.Int64
	latencyCalls  atomic.Int64
	activeClients atomic.Int32
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) DetectionStarted() {
	ActiveDetections.Inc()
}

func (m *Metrics) DetectionFinished(v *models.VideoVerdict, err error, elapsed time.Duration) {
	ActiveDetections.Dec()
	DetectionDuration.Observe(elapsed.Seconds())
	VideosProcessedTotal.WithLabelValues(Outcome(v, err)).Inc()

	if err != nil {
		m.totalErrors.Add(1)
		return
	}
	m.totalVideos.Add(1)
	if v != nil && v.VideoStatus == models.StatusFake {
		m.fakeVideos.Add(1)
	}
}

func (m *Metrics) IncrementFrames() {
	m.totalFrames.Add(1)
	FramesScoredTotal.Inc()
}

func (m *Metrics) RecordLatency(duration time.Duration) {
	m.totalLatency.Add(duration.Microseconds())
	m.latencyCalls.Add(1)
	ClassifierLatency.Observe(duration.Seconds())
}

func (m *Metrics) SetActiveClients(count int) {
	m.activeClients.Store(int32(count))
	WebSocketClients.Set(float64(count))
}

func (m *Metrics) GetActiveClients() int {
	return int(m.activeClients.Load())
}

func (m *Metrics) GetTotalFrames() int64 {
	return m.totalFrames.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

// GetAvgLatency returns the mean classifier latency in milliseconds.
func (m *Metrics) GetAvgLatency() float64 {
	calls := m.latencyCalls.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(calls) / 1000
}

func (m *Metrics) Snapshot() models.MetricsSnapshot {
	return models.MetricsSnapshot{
		TotalVideos:   m.totalVideos.Load(),
		FakeVideos:    m.fakeVideos.Load(),
		TotalFrames:   m.totalFrames.Load(),
		TotalErrors:   m.totalErrors.Load(),
		AvgLatencyMs:  m.GetAvgLatency(),
		ActiveClients: m.GetActiveClients(),
		Timestamp:     time.Now().UTC(),
	}
}
