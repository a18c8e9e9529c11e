package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/video"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDecoder returns an FFmpegOpener whose ffprobe reports a 2x2 stream
// and whose ffmpeg runs script.
func scriptedDecoder(t *testing.T, script string) *video.FFmpegOpener {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	dir := t.TempDir()
	ffprobe := filepath.Join(dir, "ffprobe")
	decoder := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(ffprobe, []byte("#!/bin/sh\necho '{\"streams\":[{\"width\":2,\"height\":2}]}'\n"), 0o755))
	require.NoError(t, os.WriteFile(decoder, []byte("#!/bin/sh\n"+script), 0o755))
	return video.NewFFmpegOpener(decoder, ffprobe, nil)
}

const (
	whiteFrame      = `printf '\377\377\377\377\377\377\377\377\377\377\377\377'` + "\n"
	hangUntilKilled = "exec sleep 30\n"
)

var alwaysFake = ClassifierFunc(func(context.Context, *video.Tensor) (float64, error) {
	return 0.9, nil
})

func TestDetect_DecoderKilledByDeadline(t *testing.T) {
	opener := scriptedDecoder(t, whiteFrame+hangUntilKilled)
	path := writeVideo(t, "clip.mp4", "container")
	d := NewDetector(opener, alwaysFake, DefaultDetectorConfig(), NewMetrics(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	v, err := d.Detect(ctx, path)
	require.Error(t, err)
	assert.Nil(t, v, "no verdict over a partial video")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, CodeTimeout, ErrorCode(err))
}

func TestDetect_DecoderKilledBeforeFirstFrame(t *testing.T) {
	opener := scriptedDecoder(t, hangUntilKilled)
	path := writeVideo(t, "clip.mp4", "container")
	d := NewDetector(opener, alwaysFake, DefaultDetectorConfig(), NewMetrics(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := d.Detect(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrOpen))
	assert.False(t, errors.Is(err, ErrNoFrames))
}

func TestDetect_ScriptedDecoderCompletes(t *testing.T) {
	opener := scriptedDecoder(t, whiteFrame+whiteFrame+whiteFrame)
	path := writeVideo(t, "clip.mp4", "container")
	d := NewDetector(opener, alwaysFake, DefaultDetectorConfig(), NewMetrics(), nil)

	v, err := d.Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, v.TotalFrames)
	assert.Equal(t, 3, v.FakeFrames)
}

func TestAnalyzer_DeadlineVerdictNotKept(t *testing.T) {
	opener := scriptedDecoder(t, whiteFrame+hangUntilKilled)
	path := writeVideo(t, "clip.mp4", "container")
	store := &memoryStore{}
	cache := NewVerdictCache(8)
	a := NewAnalyzer(NewDetector(opener, alwaysFake, DefaultDetectorConfig(), NewMetrics(), nil), cache, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := a.Analyze(ctx, AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, cache.Len())
	assert.Empty(t, store.records)
}

func TestDetect_ClassifierCutOffByDeadline(t *testing.T) {
	opener := &fakeOpener{videos: map[string]int{"clip.mp4": 3}}
	// the transport reports the deadline in its own error type
	clf := ClassifierFunc(func(ctx context.Context, _ *video.Tensor) (float64, error) {
		<-ctx.Done()
		return 0, fmt.Errorf("rpc error: code = DeadlineExceeded desc = %v", ctx.Err())
	})
	d := newTestDetector(opener, clf)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Detect(ctx, "clip.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrClassifier))
	assert.Equal(t, CodeTimeout, ErrorCode(err))
}
