package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"DEEPFAKE_DETECTOR/go-backend/internal/app"
	"DEEPFAKE_DETECTOR/go-backend/internal/handlers"
	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/queue"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type uploader interface {
	PutVideo(ctx context.Context, key, path string) error
}

type jobPublisher interface {
	PublishJob(ctx context.Context, job *models.DetectionJob) error
}

var submitCmd = &cobra.Command{
	Use:   "submit <video>...",
	Short: "Upload videos to MinIO and queue them for the worker",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := app.OpenStorage(ctx, cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return errStorageDisabled
		}

		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := queue.NewPublisher(conn, cfg.RabbitMQJobsQueue)
		if err != nil {
			return err
		}
		defer pub.Close()

		for _, path := range args {
			if !handlers.AllowedFile(path, cliExtensions) {
				return fmt.Errorf("unsupported video type %q, expected one of %v", path, cliExtensions)
			}
		}
		return submitAll(ctx, cmd.OutOrStdout(), st, pub, args)
	},
}

// submitAll uploads each video under a fresh key and queues one job per video.
func submitAll(ctx context.Context, out io.Writer, up uploader, pub jobPublisher, paths []string) error {
	for _, path := range paths {
		job := &models.DetectionJob{
			JobID:    uuid.New(),
			Filename: filepath.Base(path),
		}
		job.VideoKey = job.JobID.String() + "_" + handlers.SanitizeFilename(job.Filename)

		if err := up.PutVideo(ctx, job.VideoKey, path); err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		if err := pub.PublishJob(ctx, job); err != nil {
			return fmt.Errorf("queue %s: %w", path, err)
		}
		logger.Info("job submitted", zap.String("job_id", job.JobID.String()), zap.String("video_key", job.VideoKey))
		fmt.Fprintf(out, "%s\t%s\n", job.JobID, path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
