package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/app"
	"DEEPFAKE_DETECTOR/go-backend/internal/handlers"
	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// The desktop picker also accepted mkv.
var cliExtensions = []string{"mp4", "avi", "mov", "mkv"}

var detectTimeout time.Duration

var detectCmd = &cobra.Command{
	Use:   "detect <video>",
	Short: "Classify one video as REAL or FAKE",
	Long:  `deepfake detect /path/to/video.mp4`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !handlers.AllowedFile(path, cliExtensions) {
			return fmt.Errorf("unsupported video type %q, expected one of %v", path, cliExtensions)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("video not found: %w", err)
		}

		stack, err := app.NewStack(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), detectTimeout)
		defer cancel()

		v, err := stack.Detector.Detect(ctx, path)
		if err != nil {
			logger.Debug("detection failed", zap.String("video", path), zap.Error(err))
			return errors.New(handlers.FailureFor(err).Message)
		}
		return renderVerdict(cmd.OutOrStdout(), *v)
	},
}

func renderVerdict(w io.Writer, v models.VideoVerdict) error {
	_, err := fmt.Fprintf(w, "Total Frames: %d\nFake Frames: %d (%.2f%%)\nThe video is predicted to be %s.\n",
		v.TotalFrames, v.FakeFrames, v.FakePercentage, v.VideoStatus)
	return err
}

func init() {
	detectCmd.Flags().DurationVar(&detectTimeout, "timeout", 10*time.Minute, "give up after this long")
	rootCmd.AddCommand(detectCmd)
}
