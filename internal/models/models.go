package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the body of /signup and /login. Errors is set iff Success is false.
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Errors  string `json:"errors,omitempty"`
}

// DetectionRecord is one stored verdict in the detections table.
type DetectionRecord struct {
	ID             uuid.UUID   `json:"id"`
	Filename       string      `json:"filename"`
	Digest         string      `json:"digest"`
	Source         string      `json:"source"`
	TotalFrames    int         `json:"total_frames"`
	FakeFrames     int         `json:"fake_frames"`
	FakePercentage float64     `json:"fake_percentage"`
	VideoStatus    VideoStatus `json:"video_status"`
	FrameThreshold float64     `json:"frame_threshold"`
	ModelName      string      `json:"model_name"`
	ImageSize      int         `json:"image_size"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ScoringProfile is what a stored frame count depends on besides the video bytes.
type ScoringProfile struct {
	FrameThreshold float64
	ModelName      string
	ImageSize      int
}

func NewDetectionRecord(filename, digest, source string, p ScoringProfile, v VideoVerdict) *DetectionRecord {
	return &DetectionRecord{
		ID:             uuid.New(),
		Filename:       filename,
		Digest:         digest,
		Source:         source,
		TotalFrames:    v.TotalFrames,
		FakeFrames:     v.FakeFrames,
		FakePercentage: v.FakePercentage,
		VideoStatus:    v.VideoStatus,
		FrameThreshold: p.FrameThreshold,
		ModelName:      p.ModelName,
		ImageSize:      p.ImageSize,
		CreatedAt:      time.Now().UTC(),
	}
}

func (r *DetectionRecord) Verdict() VideoVerdict {
	return VideoVerdict{
		TotalFrames:    r.TotalFrames,
		FakeFrames:     r.FakeFrames,
		FakePercentage: r.FakePercentage,
		VideoStatus:    r.VideoStatus,
	}
}

type JobStatus string

const (
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// DetectionJob is the inbound message on the jobs queue.
type DetectionJob struct {
	JobID    uuid.UUID `json:"job_id"`
	VideoKey string    `json:"video_key"`
	Filename string    `json:"filename"`
}

// DetectionResult is the outbound message on the results queue.
type DetectionResult struct {
	JobID     uuid.UUID     `json:"job_id"`
	VideoKey  string        `json:"video_key"`
	Status    JobStatus     `json:"status"`
	Verdict   *VideoVerdict `json:"verdict,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
	Attempt   int           `json:"attempt"`
}
