package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FFmpegOpener decodes videos by piping ffmpeg's rawvideo rgb24 output.
type FFmpegOpener struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *zap.Logger
}

func NewFFmpegOpener(ffmpegPath, ffprobePath string, logger *zap.Logger) *FFmpegOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegOpener{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, Logger: logger}
}

// StreamInfo describes the first video stream of a container.
type StreamInfo struct {
	Width  int
	Height int
}

// Inspect reads the dimensions of the first video stream.
func (o *FFmpegOpener) Inspect(ctx context.Context, path string) (StreamInfo, error) {
	cmd := exec.CommandContext(ctx, o.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var data struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(data.Streams) == 0 {
		return StreamInfo{}, errors.New("no video streams found")
	}
	s := data.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return StreamInfo{}, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
	}
	return StreamInfo{Width: s.Width, Height: s.Height}, nil
}

func (o *FFmpegOpener) Open(ctx context.Context, path string) (FrameSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrOpen, path)
	}

	info, err := o.Inspect(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("inspect %s: %w", path, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	// -noautorotate keeps the decoded size equal to the one ffprobe reports. -vsync is
	// spelled the pre-5.1 way so older ffmpeg builds still decode every frame.
	cmd := exec.CommandContext(ctx, o.FFmpegPath,
		"-nostdin",
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-an",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrOpen, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrOpen, err)
	}

	o.Logger.Debug("decoder started",
		zap.String("video", path),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
	)

	return &ffmpegSource{
		ctx:    ctx,
		path:   path,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		frame: &Frame{
			Width:  info.Width,
			Height: info.Height,
			Pix:    make([]byte, info.Width*info.Height*3),
		},
		logger: o.Logger,
	}, nil
}

type ffmpegSource struct {
	ctx    context.Context
	path   string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	frame  *Frame
	read   int
	done   bool
	logger *zap.Logger

	waitOnce sync.Once
	waitErr  error
}

func (s *ffmpegSource) Next() (*Frame, error) {
	if s.done {
		return nil, io.EOF
	}

	_, err := io.ReadFull(s.stdout, s.frame.Pix)
	if err == nil {
		s.read++
		return s.frame, nil
	}
	s.done = true

	// a cancelled context kills ffmpeg, which looks like a normal end of stream
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		_ = s.wait()
		return nil, fmt.Errorf("decoding %s stopped after %d frames: %w", s.path, s.read, ctxErr)
	}

	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read frame %d: %w", s.read, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		s.logger.Warn("dropping truncated trailing frame", zap.String("video", s.path), zap.Int("frames", s.read))
	}

	waitErr := s.wait()
	if waitErr != nil {
		if s.read == 0 {
			return nil, fmt.Errorf("%w: %v: %s", ErrOpen, waitErr, strings.TrimSpace(s.stderr.String()))
		}
		s.logger.Warn("decoder stopped early",
			zap.String("video", s.path),
			zap.Int("frames", s.read),
			zap.Error(waitErr),
			zap.String("stderr", strings.TrimSpace(s.stderr.String())),
		)
	}
	return nil, io.EOF
}

func (s *ffmpegSource) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops the decoder if it is still running and reaps it.
func (s *ffmpegSource) Close() error {
	s.done = true
	if s.cmd.ProcessState == nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}
