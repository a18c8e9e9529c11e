package models

import "time"

type VideoStatus string

const (
	StatusReal VideoStatus = "REAL"
	StatusFake VideoStatus = "FAKE"
)

// VideoVerdict is the final result of scoring every frame of one video.
type VideoVerdict struct {
	TotalFrames    int         `json:"total_frames"`
	FakeFrames     int         `json:"fake_frames"`
	FakePercentage float64     `json:"fake_percentage"`
	VideoStatus    VideoStatus `json:"video_status"`
}

// Prediction is the /predict rendering of a verdict, which names the label "prediction".
type Prediction struct {
	TotalFrames    int         `json:"total_frames"`
	FakeFrames     int         `json:"fake_frames"`
	FakePercentage float64     `json:"fake_percentage"`
	Prediction     VideoStatus `json:"prediction"`
}

func (v VideoVerdict) AsPrediction() Prediction {
	return Prediction{
		TotalFrames:    v.TotalFrames,
		FakeFrames:     v.FakeFrames,
		FakePercentage: v.FakePercentage,
		Prediction:     v.VideoStatus,
	}
}

// FrameEvent is pushed to websocket subscribers after each frame is scored.
type FrameEvent struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	IsFake bool    `json:"is_fake"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
}

type HealthStatus struct {
	Status        string `json:"status"`
	Classifier    bool   `json:"classifier"`
	Database      bool   `json:"database"`
	ActiveClients int    `json:"active_clients"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version,omitempty"`
}

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// MetricsSnapshot is the JSON body of /api/metrics.
type MetricsSnapshot struct {
	TotalVideos   int64     `json:"total_videos"`
	FakeVideos    int64     `json:"fake_videos"`
	TotalFrames   int64     `json:"total_frames"`
	TotalErrors   int64     `json:"total_errors"`
	AvgLatencyMs  float64   `json:"avg_latency_ms"`
	ActiveClients int       `json:"active_clients"`
	Timestamp     time.Time `json:"timestamp"`
}
