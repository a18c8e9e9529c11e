package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/app"
	"DEEPFAKE_DETECTOR/go-backend/internal/config"
	"DEEPFAKE_DETECTOR/go-backend/internal/database"
	"DEEPFAKE_DETECTOR/go-backend/internal/handlers"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	"DEEPFAKE_DETECTOR/go-backend/internal/tracing"
	"DEEPFAKE_DETECTOR/go-backend/pkg/pb"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var (
	grpcServer *grpc.Server
	httpServer *http.Server
)

func main() {
	httpPort := flag.String("http-port", "", "HTTP port (overrides HTTP_PORT)")
	grpcPort := flag.String("grpc-port", "", "gRPC port (overrides GRPC_PORT)")
	classifierAddr := flag.String("classifier-addr", "", "classifier service address (overrides CLASSIFIER_ADDR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *httpPort != "" {
		cfg.HTTPPort = *httpPort
	}
	if *grpcPort != "" {
		cfg.GRPCPort = *grpcPort
	}
	if *classifierAddr != "" {
		cfg.ClassifierAddr = *classifierAddr
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting deepfake detector",
		zap.String("grpc_port", trimPort(cfg.GRPCPort)),
		zap.String("http_port", trimPort(cfg.HTTPPort)),
		zap.String("classifier", cfg.ClassifierAddr),
		zap.String("environment", cfg.Environment),
		zap.Float64("frame_threshold", cfg.FrameThreshold),
		zap.Float64("video_fake_percent", cfg.VideoFakePercent),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "deepfake-detector")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	var (
		store   services.DetectionStore
		history handlers.HistoryStore
		pinger  handlers.Pinger
		archive handlers.Archive
		auth    *services.AuthService
	)

	pool, err := app.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
		repo := database.NewDetectionRepository(pool)
		store, history, pinger = repo, repo, repo
		auth = services.NewAuthService(database.NewUserRepository(pool), services.AuthConfig{
			TokenTTL:   cfg.AuthTokenTTL,
			BcryptCost: cfg.BcryptCost,
		}, logger)
	}

	st, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Warn("upload archive disabled", zap.Error(err))
	} else if st != nil {
		archive = st
	}

	stack, err := app.NewStack(cfg, store, logger)
	if err != nil {
		logger.Fatal("classifier client", zap.Error(err))
	}
	defer stack.Close()

	hctx, hcancel := context.WithTimeout(ctx, 3*time.Second)
	if !stack.Remote.HealthCheck(hctx) {
		logger.Warn("classifier not reachable yet, continuing", zap.String("addr", cfg.ClassifierAddr))
	}
	hcancel()

	hub := handlers.NewHub(stack.Metrics, logger)

	grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(50*1024*1024),
		grpc.MaxSendMsgSize(50*1024*1024),
	)
	pb.RegisterDetectionServer(grpcServer, handlers.NewGRPCHandler(stack.Analyzer, stack.Remote, stack.Metrics, cfg.UploadDir, cfg.DetectTimeout, logger))

	router := handlers.NewRouter(handlers.RouterConfig{
		Upload: handlers.NewUploadHandler(stack.Analyzer, archive, hub, handlers.UploadConfig{
			Dir:               cfg.UploadDir,
			AllowedExtensions: cfg.AllowedExtensions,
			MaxBytes:          cfg.MaxUploadMB << 20,
			DetectTimeout:     cfg.DetectTimeout,
		}, logger),
		API:         handlers.NewAPIHandler(stack.Remote, pinger, history, hub, stack.Metrics, logger),
		Hub:         hub,
		Auth:        handlers.NewAuthHandler(auth, logger),
		RequireAuth: cfg.AuthRequired,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	httpServer = newHTTPServer(cfg.HTTPPort, router, cfg.DetectTimeout)

	go startGRPCServer(logger, cfg.GRPCPort)
	go startHTTPServer(logger)

	sig := <-done
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info("gRPC server stopped")
	case <-shutdownCtx.Done():
		logger.Warn("forcing gRPC shutdown")
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped")
	}

	hub.CloseAll()
	logger.Info("goodbye")
}

func trimPort(port string) string {
	return strings.TrimPrefix(port, ":")
}

func startGRPCServer(logger *zap.Logger, port string) {
	lis, err := net.Listen("tcp", ":"+trimPort(port))
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	logger.Info("gRPC server listening", zap.String("port", trimPort(port)))
	if err := grpcServer.Serve(lis); err != nil {
		logger.Fatal("failed to serve gRPC", zap.Error(err))
	}
}

func newHTTPServer(port string, handler http.Handler, detectTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              ":" + trimPort(port),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// uploads are classified inline
		WriteTimeout: detectTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func startHTTPServer(logger *zap.Logger) {
	port := trimPort(httpServer.Addr)
	logger.Info("HTTP server listening",
		zap.String("upload", "http://localhost:"+port+"/upload"),
		zap.String("predict", "http://localhost:"+port+"/predict"),
		zap.String("websocket", "ws://localhost:"+port+"/ws"),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("failed to serve HTTP", zap.Error(err))
	}
}
