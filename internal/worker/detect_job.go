package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepfake_jobs_processed_total",
		Help: "Total number of queued detection jobs, by result",
	}, []string{"result"})

	JobRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deepfake_job_retries_total",
		Help: "Total number of detection job attempts that were retried",
	})
)

type VideoStorage interface {
	DownloadVideo(ctx context.Context, key, destPath string) error
}

type ResultPublisher interface {
	PublishResult(ctx context.Context, res *models.DetectionResult) error
}

type Config struct {
	TempDir     string
	MaxAttempts int
}

// DetectJob downloads the video named by a queued job, classifies it and
// publishes the outcome.
type DetectJob struct {
	storage   VideoStorage
	analyzer  *services.Analyzer
	publisher ResultPublisher
	cfg       Config
	logger    *zap.Logger
}

func NewDetectJob(storage VideoStorage, analyzer *services.Analyzer, publisher ResultPublisher, cfg Config, logger *zap.Logger) *DetectJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &DetectJob{storage: storage, analyzer: analyzer, publisher: publisher, cfg: cfg, logger: logger}
}

// Execute handles one job message. It returns nil once a result is published,
// and an error when the job should be tried again.
func (uc *DetectJob) Execute(ctx context.Context, raw []byte, attempt int) error {
	ctx, span := otel.Tracer("worker").Start(ctx, "DetectJob.Execute")
	defer span.End()

	var job models.DetectionJob
	if err := json.Unmarshal(raw, &job); err != nil {
		uc.logger.Error("failed to unmarshal job", zap.Error(err), zap.ByteString("body", raw))
		JobsProcessedTotal.WithLabelValues("invalid").Inc()
		return nil
	}
	if job.JobID == uuid.Nil || strings.TrimSpace(job.VideoKey) == "" {
		uc.logger.Error("job is missing job_id or video_key", zap.ByteString("body", raw))
		return uc.fail(ctx, job, attempt, fmt.Errorf("%w: job_id and video_key are required", services.ErrInvalidInput))
	}

	span.SetAttributes(
		attribute.String("job.id", job.JobID.String()),
		attribute.String("job.video_key", job.VideoKey),
		attribute.Int("job.attempt", attempt),
	)
	log := uc.logger.With(zap.String("job_id", job.JobID.String()), zap.String("video_key", job.VideoKey), zap.Int("attempt", attempt))
	start := time.Now()

	res, err := uc.run(ctx, job)
	if err != nil {
		if permanent(err) || attempt >= uc.cfg.MaxAttempts {
			log.Warn("job failed", zap.Error(err))
			return uc.fail(ctx, job, attempt, err)
		}
		JobRetriesTotal.Inc()
		log.Warn("job attempt failed, will retry", zap.Error(err), zap.Int("max_attempts", uc.cfg.MaxAttempts))
		return fmt.Errorf("attempt %d/%d: %w", attempt, uc.cfg.MaxAttempts, err)
	}

	out := &models.DetectionResult{
		JobID:    job.JobID,
		VideoKey: job.VideoKey,
		Status:   models.JobStatusCompleted,
		Verdict:  &res.Verdict,
		Attempt:  attempt,
	}
	if err := uc.publisher.PublishResult(ctx, out); err != nil {
		log.Error("failed to publish result", zap.Error(err))
		return fmt.Errorf("publish result: %w", err)
	}

	JobsProcessedTotal.WithLabelValues("completed").Inc()
	log.Info("job completed",
		zap.String("video_status", string(res.Verdict.VideoStatus)),
		zap.Float64("fake_percentage", res.Verdict.FakePercentage),
		zap.Bool("cached", res.Cached),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (uc *DetectJob) run(ctx context.Context, job models.DetectionJob) (*services.AnalyzeResult, error) {
	tracer := otel.Tracer("worker")

	workDir := filepath.Join(uc.cfg.TempDir, job.JobID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	name := job.Filename
	if name == "" {
		name = filepath.Base(job.VideoKey)
	}
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(name))

	dlCtx, dlSpan := tracer.Start(ctx, "download_video")
	err := uc.storage.DownloadVideo(dlCtx, job.VideoKey, videoPath)
	dlSpan.End()
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}

	return uc.analyzer.Analyze(ctx, services.AnalyzeRequest{
		Path:     videoPath,
		Filename: name,
		Source:   "worker",
	})
}

func (uc *DetectJob) fail(ctx context.Context, job models.DetectionJob, attempt int, cause error) error {
	out := &models.DetectionResult{
		JobID:     job.JobID,
		VideoKey:  job.VideoKey,
		Status:    models.JobStatusFailed,
		Error:     cause.Error(),
		ErrorCode: services.ErrorCode(cause),
		Attempt:   attempt,
	}
	if err := uc.publisher.PublishResult(ctx, out); err != nil {
		uc.logger.Error("failed to publish failure", zap.String("job_id", job.JobID.String()), zap.Error(err))
		return fmt.Errorf("publish failure: %w", err)
	}
	JobsProcessedTotal.WithLabelValues("failed").Inc()
	return nil
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
	return errors.Is(err, services.ErrOpen) ||
		errors.Is(err, services.ErrNoFrames) ||
		errors.Is(err, services.ErrInvalidInput)
}
