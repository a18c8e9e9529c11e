package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	pb "DEEPFAKE_DETECTOR/go-backend/pkg/pb"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCHandler implements deepfake.v1.Detection on top of the shared analyzer.
// DetectVideo only reads regular files under root.
type GRPCHandler struct {
	pb.UnimplementedDetectionServer
	analyzer   *services.Analyzer
	classifier services.HealthChecker
	metrics    *services.Metrics
	root       string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewGRPCHandler(analyzer *services.Analyzer, classifier services.HealthChecker, metrics *services.Metrics, root string, timeout time.Duration, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = services.NewMetrics()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if root == "" {
		root = "."
	}
	return &GRPCHandler{
		analyzer:   analyzer,
		classifier: classifier,
		metrics:    metrics,
		root:       root,
		timeout:    timeout,
		logger:     logger,
	}
}

func (h *GRPCHandler) DetectVideo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	path := strings.TrimSpace(req.GetValue())
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "video path is required")
	}
	resolved, err := resolveVideoPath(h.root, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, status.Error(codes.NotFound, "video file not found")
	case errors.Is(err, errOutsideRoot), errors.Is(err, errNotRegular):
		h.logger.Warn("grpc video path rejected", zap.String("video", path), zap.Error(err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.NotFound, "could not open video file")
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res, err := h.analyzer.Analyze(ctx, services.AnalyzeRequest{
		Path:     resolved,
		Filename: filepath.Base(resolved),
		Source:   "grpc",
	})
	if err != nil {
		h.logger.Warn("grpc detection failed", zap.String("video", path), zap.Error(err))
		return nil, StatusFor(err)
	}
	return VerdictStruct(res.Verdict)
}

func (h *GRPCHandler) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	classifierUp := h.classifier != nil && h.classifier.HealthCheck(ctx)
	h.logger.Debug("grpc health", zap.Bool("classifier", classifierUp), zap.Int("active_clients", h.metrics.GetActiveClients()))

	st := "healthy"
	if !classifierUp {
		st = "degraded"
	}
	return structpb.NewStruct(map[string]interface{}{
		"status":         st,
		"classifier":     classifierUp,
		"active_clients": h.metrics.GetActiveClients(),
		"version":        Version,
	})
}

// StatusFor maps a detection error onto a gRPC status.
func StatusFor(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, services.ErrOpen):
		return status.Error(codes.NotFound, "could not open video file")
	case errors.Is(err, services.ErrNoFrames):
		return status.Error(codes.FailedPrecondition, "video contains no decodable frames")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "detection timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "detection cancelled")
	case errors.Is(err, services.ErrClassifier):
		return status.Error(codes.Unavailable, "classifier failed while scoring the video")
	default:
		return status.Error(codes.Internal, "detection failed")
	}
}

func VerdictStruct(v models.VideoVerdict) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"total_frames":    v.TotalFrames,
		"fake_frames":     v.FakeFrames,
		"fake_percentage": v.FakePercentage,
		"video_status":    string(v.VideoStatus),
	})
}

// VerdictFromStruct is the inverse of VerdictStruct, used by gRPC clients.
func VerdictFromStruct(s *structpb.Struct) models.VideoVerdict {
	f := s.GetFields()
	return models.VideoVerdict{
		TotalFrames:    int(f["total_frames"].GetNumberValue()),
		FakeFrames:     int(f["fake_frames"].GetNumberValue()),
		FakePercentage: f["fake_percentage"].GetNumberValue(),
		VideoStatus:    models.VideoStatus(f["video_status"].GetStringValue()),
	}
}
