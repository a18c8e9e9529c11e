package main

import (
	"DEEPFAKE_DETECTOR/go-backend/internal/app"
	"DEEPFAKE_DETECTOR/go-backend/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "deepfake",
	Short:         "Deepfake video detection tools",
	Long:          `Classify videos frame by frame, dump frames for training and run the queue worker.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = app.NewLogger(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}
