package main

import (
	"fmt"

	"DEEPFAKE_DETECTOR/go-backend/internal/video"

	"github.com/spf13/cobra"
)

var (
	extractVideos []string
	extractOuts   []string
	extractEvery  int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Dump every Nth frame of videos as JPEG files",
	Long:  `deepfake extract --video a.mp4,b.mp4 --out frames/a,frames/b --every 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(extractVideos) == 0 || len(extractOuts) == 0 {
			return fmt.Errorf("--video and --out are both required")
		}

		opener := video.NewFFmpegOpener(cfg.FFmpegPath, cfg.FFprobePath, logger)
		ex, err := video.NewExtractor(opener, extractEvery, logger)
		if err != nil {
			return err
		}

		results := ex.ExtractAll(cmd.Context(), extractVideos, extractOuts)
		for _, res := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "Finished processing %s: %d frames saved to %s\n",
				res.Video, len(res.Written), res.OutputDir)
		}
		return cmd.Context().Err()
	},
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractVideos, "video", nil, "comma separated video paths")
	extractCmd.Flags().StringSliceVar(&extractOuts, "out", nil, "comma separated output directories, one per video")
	extractCmd.Flags().IntVar(&extractEvery, "every", 1, "keep frames whose index is a multiple of this")
	rootCmd.AddCommand(extractCmd)
}
