package video

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SanitizePath strips surrounding whitespace and quotes from a pasted path.
func SanitizePath(p string) string {
	return strings.Trim(strings.TrimSpace(p), `"'`)
}

// Extractor dumps every Nth decoded frame of a video as JPEG files, for
// building training sets. It is not part of the detection path.
type Extractor struct {
	opener  Opener
	every   int
	quality int
	logger  *zap.Logger
}

func NewExtractor(opener Opener, every int, logger *zap.Logger) (*Extractor, error) {
	if every <= 0 {
		return nil, fmt.Errorf("sampling period must be positive, got %d", every)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{opener: opener, every: every, quality: 95, logger: logger}, nil
}

// ExtractResult reports what one Extract call wrote.
type ExtractResult struct {
	Video     string
	OutputDir string
	Decoded   int
	Written   []string
}

// Extract writes frame_<id>.jpg for every frame whose id is a multiple of the
// sampling period. Frame ids count every decoded frame from 0.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputDir string) (*ExtractResult, error) {
	videoPath = SanitizePath(videoPath)
	outputDir = SanitizePath(outputDir)

	log := e.logger.With(zap.String("video", videoPath), zap.String("output_dir", outputDir))
	log.Info("extracting frames", zap.Int("every", e.every))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	src, err := e.opener.Open(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	res := &ExtractResult{Video: videoPath, OutputDir: outputDir}
	for frameID := 0; ; frameID++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		res.Decoded++

		if frameID%e.every != 0 {
			continue
		}
		name := filepath.Join(outputDir, fmt.Sprintf("frame_%d.jpg", frameID))
		if err := e.writeJPEG(name, f); err != nil {
			return res, fmt.Errorf("write %s: %w", name, err)
		}
		res.Written = append(res.Written, name)
	}

	log.Info("finished extracting", zap.Int("decoded", res.Decoded), zap.Int("written", len(res.Written)))
	return res, nil
}

func (e *Extractor) writeJPEG(name string, f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, f.RGBA(), &jpeg.Options{Quality: e.quality}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ExtractAll pairs videos with output dirs in order; extra entries on either
// side are ignored. A video that fails is logged and skipped.
func (e *Extractor) ExtractAll(ctx context.Context, videos, outputDirs []string) []*ExtractResult {
	n := min(len(videos), len(outputDirs))
	results := make([]*ExtractResult, 0, n)
	for i := 0; i < n; i++ {
		res, err := e.Extract(ctx, videos[i], outputDirs[i])
		if err != nil {
			e.logger.Error("frame extraction failed", zap.String("video", SanitizePath(videos[i])), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, res)
	}
	return results
}
