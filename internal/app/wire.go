// Package app builds the shared detection stack from configuration for the
// server and the CLI.
package app

import (
	"context"
	"fmt"

	"DEEPFAKE_DETECTOR/go-backend/internal/config"
	"DEEPFAKE_DETECTOR/go-backend/internal/database"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	"DEEPFAKE_DETECTOR/go-backend/internal/storage"
	"DEEPFAKE_DETECTOR/go-backend/internal/video"
	"DEEPFAKE_DETECTOR/go-backend/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return logger.NewDevelopment(cfg.LogLevel)
	}
	return logger.New(cfg.LogLevel)
}

// Stack is the detection engine and the classifier connection it owns.
type Stack struct {
	Remote   *services.GRPCClassifier
	Detector *services.Detector
	Analyzer *services.Analyzer
	Metrics  *services.Metrics
}

func (s *Stack) Close() error {
	return s.Remote.Close()
}

// NewStack connects the classifier once and builds the detector and analyzer
// around it. store may be nil.
func NewStack(cfg *config.Config, store services.DetectionStore, log *zap.Logger) (*Stack, error) {
	metrics := services.NewMetrics()

	remote, err := services.NewGRPCClassifier(services.GRPCClassifierConfig{
		URL:       cfg.ClassifierAddr,
		ModelName: cfg.ModelName,
		Timeout:   cfg.ClassifierTimeout,
	}, metrics, log)
	if err != nil {
		return nil, err
	}

	var clf services.Classifier = remote
	if cfg.ClassifierSerialize {
		clf = services.NewSerializedClassifier(remote)
	}

	opener := video.NewFFmpegOpener(cfg.FFmpegPath, cfg.FFprobePath, log)
	detector := services.NewDetector(opener, clf, DetectorConfig(cfg), metrics, log)

	return &Stack{
		Remote:   remote,
		Detector: detector,
		Analyzer: services.NewAnalyzer(detector, services.NewVerdictCache(cfg.VerdictCacheSize), store, log),
		Metrics:  metrics,
	}, nil
}

func DetectorConfig(cfg *config.Config) services.DetectorConfig {
	return services.DetectorConfig{
		FrameThreshold:   cfg.FrameThreshold,
		VideoFakePercent: cfg.VideoFakePercent,
		ImageSize:        cfg.ImageSize,
		Model:            cfg.ModelName,
	}
}

// OpenDatabase migrates and connects when DB_ENABLED is set; otherwise it
// returns nil, nil.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	if !cfg.DBEnabled {
		return nil, nil
	}
	log.Info("connecting to postgres", zap.String("dsn", cfg.DSNForLog()))
	if err := database.RunMigrations(ctx, cfg.DSN()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database.Connect(ctx, cfg.DSN(), log)
}

// OpenStorage connects to MinIO and makes sure the bucket exists when
// MINIO_ENABLED is set; otherwise it returns nil, nil.
func OpenStorage(ctx context.Context, cfg *config.Config) (*storage.Storage, error) {
	if !cfg.MinIOEnabled {
		return nil, nil
	}
	st, err := storage.NewStorage(storage.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
	})
	if err != nil {
		return nil, err
	}
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
