package services

import (
	"context"
	"sync"

	"DEEPFAKE_DETECTOR/go-backend/internal/video"
)

// Classifier scores one preprocessed frame; higher means more likely manipulated.
type Classifier interface {
	Score(ctx context.Context, t *video.Tensor) (float64, error)
}

type ClassifierFunc func(ctx context.Context, t *video.Tensor) (float64, error)

func (f ClassifierFunc) Score(ctx context.Context, t *video.Tensor) (float64, error) {
	return f(ctx, t)
}

// HealthChecker is implemented by classifiers that can report reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

type serializedClassifier struct {
	mu sync.Mutex
	c  Classifier
}

// NewSerializedClassifier allows one Score call at a time, for classifiers
// that are not safe for concurrent inference.
func NewSerializedClassifier(c Classifier) Classifier {
	return &serializedClassifier{c: c}
}

func (s *serializedClassifier) Score(ctx context.Context, t *video.Tensor) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Score(ctx, t)
}

func (s *serializedClassifier) HealthCheck(ctx context.Context) bool {
	if hc, ok := s.c.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return true
}
