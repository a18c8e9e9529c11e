package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/video"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrOpen is returned when the video cannot be opened or decoded at all.
	ErrOpen = video.ErrOpen
	// ErrNoFrames is returned when the video opened but yielded no frame.
	ErrNoFrames = errors.New("video contains no decodable frames")
	// ErrClassifier is returned when scoring any frame fails; the video is abandoned.
	ErrClassifier = errors.New("classifier failure")
	// ErrInvalidInput is raised by front ends before the detector runs.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	DefaultFrameThreshold   = 0.5
	DefaultVideoFakePercent = 50.0
)

// FrameLabelFor labels one frame score. A score equal to the threshold is REAL.
func FrameLabelFor(score, threshold float64) models.VideoStatus {
	if score > threshold {
		return models.StatusFake
	}
	return models.StatusReal
}

// VideoStatusFor labels a video by its share of fake frames. Exactly at the
// limit is REAL.
func VideoStatusFor(fakePercentage, limit float64) models.VideoStatus {
	if fakePercentage > limit {
		return models.StatusFake
	}
	return models.StatusReal
}

// NewVerdict aggregates counts into a verdict. total must be positive.
func NewVerdict(total, fake int, limit float64) models.VideoVerdict {
	pct := float64(fake) / float64(total) * 100
	return models.VideoVerdict{
		TotalFrames:    total,
		FakeFrames:     fake,
		FakePercentage: pct,
		VideoStatus:    VideoStatusFor(pct, limit),
	}
}

// FrameObserver receives every scored frame, in order, on the detecting goroutine.
type FrameObserver interface {
	OnFrame(ev models.FrameEvent)
}

type FrameObserverFunc func(ev models.FrameEvent)

func (f FrameObserverFunc) OnFrame(ev models.FrameEvent) { f(ev) }

type DetectorConfig struct {
	FrameThreshold   float64
	VideoFakePercent float64
	ImageSize        int
	// Model identifies the classifier behind the detector. Verdicts from
	// different models are never reused for each other.
	Model string
}

func (c DetectorConfig) Profile() models.ScoringProfile {
	return models.ScoringProfile{FrameThreshold: c.FrameThreshold, ModelName: c.Model, ImageSize: c.ImageSize}
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		FrameThreshold:   DefaultFrameThreshold,
		VideoFakePercent: DefaultVideoFakePercent,
		ImageSize:        video.DefaultImageSize,
	}
}

// Detector scores every frame of a video and rolls the labels up into a verdict.
// One Detector is shared by all front ends; it holds no per-video state.
type Detector struct {
	opener     video.Opener
	pre        *video.Preprocessor
	classifier Classifier
	cfg        DetectorConfig
	metrics    *Metrics
	logger     *zap.Logger
}

func NewDetector(opener video.Opener, classifier Classifier, cfg DetectorConfig, metrics *Metrics, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Detector{
		opener:     opener,
		pre:        video.NewPreprocessor(cfg.ImageSize),
		classifier: classifier,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

func (d *Detector) Config() DetectorConfig { return d.cfg }

func (d *Detector) Detect(ctx context.Context, path string) (*models.VideoVerdict, error) {
	return d.DetectWithObserver(ctx, path, nil)
}

func (d *Detector) DetectWithObserver(ctx context.Context, path string, obs FrameObserver) (*models.VideoVerdict, error) {
	ctx, span := otel.Tracer("services").Start(ctx, "Detector.Detect")
	defer span.End()
	span.SetAttributes(attribute.String("video.path", path))

	start := time.Now()
	d.metrics.DetectionStarted()

	verdict, err := d.scan(ctx, path, obs)

	elapsed := time.Since(start)
	d.metrics.DetectionFinished(verdict, err, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		d.logger.Warn("detection failed", zap.String("video", path), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("video.total_frames", verdict.TotalFrames),
		attribute.Int("video.fake_frames", verdict.FakeFrames),
		attribute.String("video.status", string(verdict.VideoStatus)),
	)
	d.logger.Info("detection finished",
		zap.String("video", path),
		zap.Int("total_frames", verdict.TotalFrames),
		zap.Int("fake_frames", verdict.FakeFrames),
		zap.Float64("fake_percentage", verdict.FakePercentage),
		zap.String("video_status", string(verdict.VideoStatus)),
		zap.Duration("elapsed", elapsed),
	)
	return verdict, nil
}

func (d *Detector) scan(ctx context.Context, path string, obs FrameObserver) (*models.VideoVerdict, error) {
	src, err := d.opener.Open(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("open %s: %w", path, ctxErr)
		}
		if errors.Is(err, ErrOpen) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer src.Close()

	total, fake := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("detection aborted after %d frames: %w", total, err)
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", total, err)
		}
		idx := total
		total++

		tensor, err := d.pre.Preprocess(frame)
		if err != nil {
			return nil, fmt.Errorf("preprocess frame %d: %w", idx, err)
		}

		score, err := d.classifier.Score(ctx, tensor)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("score frame %d: %w", idx, ctxErr)
			}
			return nil, fmt.Errorf("%w: frame %d: %w", ErrClassifier, idx, err)
		}

		isFake := FrameLabelFor(score, d.cfg.FrameThreshold) == models.StatusFake
		if isFake {
			fake++
		}
		d.metrics.IncrementFrames()

		if obs != nil {
			obs.OnFrame(models.FrameEvent{Index: idx, Score: score, IsFake: isFake})
		}
	}

	// the source may have ended because the context did
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection aborted after %d frames: %w", total, err)
	}
	if total == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFrames)
	}

	verdict := NewVerdict(total, fake, d.cfg.VideoFakePercent)
	return &verdict, nil
}

// Error codes shared by every front end.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeOpenError       = "OPEN_ERROR"
	CodeNoFrames        = "NO_FRAMES"
	CodeClassifierError = "CLASSIFIER_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL"
)

// ErrorCode classifies a detection error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrOpen):
		return CodeOpenError
	case errors.Is(err, ErrNoFrames):
		return CodeNoFrames
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrClassifier):
		return CodeClassifierError
	default:
		return CodeInternal
	}
}
