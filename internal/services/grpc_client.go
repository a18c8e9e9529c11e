package services

import (
	"context"
	"fmt"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/video"
	pb "DEEPFAKE_DETECTOR/go-backend/pkg/pb"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCClassifier scores frames on a remote model server. The connection is
// created once and shared; it is safe for concurrent use.
type GRPCClassifier struct {
	conn      *grpc.ClientConn
	client    pb.ClassifierClient
	url       string
	modelName string
	timeout   time.Duration
	metrics   *Metrics
	logger    *zap.Logger
}

type GRPCClassifierConfig struct {
	URL       string
	ModelName string
	Timeout   time.Duration
}

func NewGRPCClassifier(cfg GRPCClassifierConfig, metrics *Metrics, logger *zap.Logger, extra ...grpc.DialOption) (*GRPCClassifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	logger.Info("connecting to classifier", zap.String("url", cfg.URL), zap.String("model", cfg.ModelName))

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(50*1024*1024),
			grpc.MaxCallSendMsgSize(50*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create classifier client for %s: %w", cfg.URL, err)
	}

	return &GRPCClassifier{
		conn:      conn,
		client:    pb.NewClassifierClient(conn),
		url:       cfg.URL,
		modelName: cfg.ModelName,
		timeout:   cfg.Timeout,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

func (gc *GRPCClassifier) Score(ctx context.Context, t *video.Tensor) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx,
		pb.MetadataTensorShape, t.ShapeString(),
		pb.MetadataModelName, gc.modelName,
	)

	start := time.Now()
	out, err := gc.client.Score(ctx, wrapperspb.Bytes(t.Bytes()))
	gc.metrics.RecordLatency(time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("could not score frame: %w", err)
	}
	return float64(out.GetValue()), nil
}

func (gc *GRPCClassifier) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := gc.client.Health(ctx, &emptypb.Empty{})
	if err != nil {
		gc.logger.Debug("classifier health check failed", zap.String("url", gc.url), zap.Error(err))
	}
	return err == nil
}

func (gc *GRPCClassifier) Close() error {
	if gc.conn != nil {
		return gc.conn.Close()
	}
	return nil
}
