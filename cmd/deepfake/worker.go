package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/app"
	"DEEPFAKE_DETECTOR/go-backend/internal/database"
	"DEEPFAKE_DETECTOR/go-backend/internal/queue"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	"DEEPFAKE_DETECTOR/go-backend/internal/tracing"
	"DEEPFAKE_DETECTOR/go-backend/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errStorageDisabled = errors.New("MINIO_ENABLED must be set for queue commands")

var metricsAddr string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume detection jobs from RabbitMQ",
	Long:  `Downloads each queued video from MinIO, classifies it and publishes the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("starting detection worker",
			zap.String("jobs_queue", cfg.RabbitMQJobsQueue),
			zap.String("results_queue", cfg.RabbitMQResultsQueue),
			zap.Int("workers", cfg.WorkerCount),
		)

		// non-fatal if the collector is unavailable
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "deepfake-worker")
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}

		pool, err := app.OpenDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		var store services.DetectionStore
		if pool != nil {
			defer pool.Close()
			store = database.NewDetectionRepository(pool)
		}

		st, err := app.OpenStorage(ctx, cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return errStorageDisabled
		}

		stack, err := app.NewStack(cfg, store, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := queue.NewPublisher(conn, cfg.RabbitMQResultsQueue)
		if err != nil {
			return err
		}
		defer pub.Close()

		job := worker.NewDetectJob(st, stack.Analyzer, pub, worker.Config{
			TempDir:     cfg.TempDir,
			MaxAttempts: cfg.WorkerMaxAttempts,
		}, logger)

		consumer, err := queue.NewConsumer(queue.ConsumerConfig{
			URL:         cfg.RabbitMQURL,
			Queue:       cfg.RabbitMQJobsQueue,
			Prefetch:    cfg.RabbitMQPrefetch,
			WorkerCount: cfg.WorkerCount,
			BaseDelay:   cfg.RetryBaseDelay,
		}, job.Execute, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()

		metricsSrv := startMetricsServer(metricsAddr)

		err = consumer.Start(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)

		logger.Info("detection worker stopped")
		return err
	},
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return srv
}

func init() {
	workerCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address for the Prometheus /metrics endpoint")
	rootCmd.AddCommand(workerCmd)
}
