package video

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in $PATH", bin)
		}
	}
}

// makeTestVideo encodes a synthetic clip with the given number of frames.
func makeTestVideo(t *testing.T, frames int) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", "testsrc=size=64x48:rate=10",
		"-frames:v", strconv.Itoa(frames),
		"-pix_fmt", "yuv420p",
		"-y", out,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return out
}

func countFrames(t *testing.T, src FrameSource) int {
	t.Helper()
	n := 0
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n
		}
		require.NoError(t, err)
		require.NoError(t, f.Validate())
		n++
	}
}

func TestFFmpegOpenerMissingFile(t *testing.T) {
	o := NewFFmpegOpener("", "", nil)

	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestFFmpegOpenerDirectory(t *testing.T) {
	o := NewFFmpegOpener("", "", nil)

	_, err := o.Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrOpen)
}

func TestFFmpegOpenerCorruptFile(t *testing.T) {
	requireFFmpeg(t)
	path := filepath.Join(t.TempDir(), "corrupt.mp4")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a video container"), 0644))

	o := NewFFmpegOpener("", "", nil)
	_, err := o.Open(context.Background(), path)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestFFmpegSourceYieldsEveryFrame(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t, 12)

	o := NewFFmpegOpener("", "", nil)
	info, err := o.Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{Width: 64, Height: 48}, info)

	src, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 12, countFrames(t, src))

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFFmpegSourceCloseEarly(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t, 50)

	o := NewFFmpegOpener("", "", nil)
	src, err := o.Open(context.Background(), path)
	require.NoError(t, err)

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 64, f.Width)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

// fakeDecoder writes ffprobe/ffmpeg stand-ins: ffprobe reports a 2x2 stream
// and ffmpeg runs script.
func fakeDecoder(t *testing.T, script string) *FFmpegOpener {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	dir := t.TempDir()
	ffprobe := filepath.Join(dir, "ffprobe")
	decoder := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(ffprobe, []byte("#!/bin/sh\necho '{\"streams\":[{\"width\":2,\"height\":2}]}'\n"), 0o755))
	require.NoError(t, os.WriteFile(decoder, []byte("#!/bin/sh\n"+script), 0o755))
	return NewFFmpegOpener(decoder, ffprobe, nil)
}

// oneFrame is a single white 2x2 rgb24 frame written by printf.
const oneFrame = `printf '\377\377\377\377\377\377\377\377\377\377\377\377'` + "\n"

const hang = "exec sleep 30\n"

func fakeVideoFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("container"), 0o644))
	return path
}

func TestFFmpegSourceDeadlineMidStream(t *testing.T) {
	o := fakeDecoder(t, oneFrame+hang)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	src, err := o.Open(ctx, fakeVideoFile(t))
	require.NoError(t, err)
	defer src.Close()

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)

	start := time.Now()
	_, err = src.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, io.EOF), "a killed decoder is not the end of the video")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFFmpegSourceDeadlineBeforeFirstFrame(t *testing.T) {
	o := fakeDecoder(t, hang)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	src, err := o.Open(ctx, fakeVideoFile(t))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrOpen), "a timeout is not an unreadable video")
}

func TestFFmpegSourceFakeDecoderFinishes(t *testing.T) {
	o := fakeDecoder(t, oneFrame+oneFrame)

	src, err := o.Open(context.Background(), fakeVideoFile(t))
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 2, countFrames(t, src))
}

func TestFFmpegOpenerNotRegularFile(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("/dev/null not available")
	}
	o := NewFFmpegOpener("", "", nil)

	_, err := o.Open(context.Background(), "/dev/null")
	assert.ErrorIs(t, err, ErrOpen)
}
