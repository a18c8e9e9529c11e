package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records []*models.DetectionRecord
	findErr error
}

func (s *memoryStore) SaveDetection(_ context.Context, rec *models.DetectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryStore) FindByDigest(_ context.Context, digest string, p models.ScoringProfile) (*models.DetectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.records) - 1; i >= 0; i-- {
		if r := s.records[i]; r.Digest == digest && r.FrameThreshold == p.FrameThreshold &&
			r.ModelName == p.ModelName && r.ImageSize == p.ImageSize {
			return r, nil
		}
	}
	return nil, nil
}

func writeVideo(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzer_CachesByDigest(t *testing.T) {
	path := writeVideo(t, "clip.mp4", "video bytes")
	opener := &fakeOpener{videos: map[string]int{path: 4}}
	clf := newScripted(0.9, 0.9, 0.1, 0.9)
	a := NewAnalyzer(newTestDetector(opener, clf), NewVerdictCache(8), nil, nil)

	first, err := a.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4", Source: "test"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, models.StatusFake, first.Verdict.VideoStatus)
	assert.Len(t, first.Digest, 64)

	second, err := a.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4", Source: "test"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, 4, clf.calls, "second request is served without scoring")
}

func TestAnalyzer_StoreLookupAndSave(t *testing.T) {
	path := writeVideo(t, "clip.mp4", "stored bytes")
	store := &memoryStore{}
	opener := &fakeOpener{videos: map[string]int{path: 2}}
	clf := newScripted(0.9, 0.2)

	a := NewAnalyzer(newTestDetector(opener, clf), nil, store, nil)
	res, err := a.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4", Source: "upload"})
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, res.Digest, store.records[0].Digest)
	assert.Equal(t, "upload", store.records[0].Source)
	assert.Equal(t, res.Verdict, store.records[0].Verdict())

	// a fresh analyzer with an empty cache finds the stored verdict
	b := NewAnalyzer(newTestDetector(opener, clf), NewVerdictCache(8), store, nil)
	again, err := b.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Verdict, again.Verdict)
	assert.Equal(t, 2, clf.calls)
}

func TestAnalyzer_StoreErrorFallsBackToDetection(t *testing.T) {
	path := writeVideo(t, "clip.mp4", "x")
	store := &memoryStore{findErr: errors.New("connection refused")}
	opener := &fakeOpener{videos: map[string]int{path: 1}}

	a := NewAnalyzer(newTestDetector(opener, newScripted(0.1)), nil, store, nil)
	res, err := a.Analyze(context.Background(), AnalyzeRequest{Path: path})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, models.StatusReal, res.Verdict.VideoStatus)
}

func TestAnalyzer_MissingFileIsOpenError(t *testing.T) {
	a := NewAnalyzer(newTestDetector(&fakeOpener{}, newScripted(0.1)), nil, nil, nil)
	_, err := a.Analyze(context.Background(), AnalyzeRequest{Path: filepath.Join(t.TempDir(), "nope.mp4")})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestAnalyzer_FailuresAreNotCached(t *testing.T) {
	path := writeVideo(t, "empty.mp4", "no frames")
	opener := &fakeOpener{videos: map[string]int{path: 0}}
	cache := NewVerdictCache(8)
	a := NewAnalyzer(newTestDetector(opener, newScripted(0.1)), cache, nil, nil)

	_, err := a.Analyze(context.Background(), AnalyzeRequest{Path: path})
	assert.ErrorIs(t, err, ErrNoFrames)
	assert.Zero(t, cache.Len())
}

func detectorForModel(o *fakeOpener, c Classifier, model string) *Detector {
	cfg := DefaultDetectorConfig()
	cfg.Model = model
	return NewDetector(o, c, cfg, NewMetrics(), nil)
}

func TestAnalyzer_StoredVerdictOfOtherModelMisses(t *testing.T) {
	path := writeVideo(t, "clip.mp4", "model bytes")
	store := &memoryStore{}
	opener := &fakeOpener{videos: map[string]int{path: 2}}

	oldClf := newScripted(0.9, 0.9)
	old := NewAnalyzer(detectorForModel(opener, oldClf, "deepfake_model"), nil, store, nil)
	first, err := old.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, "deepfake_model", store.records[0].ModelName)
	assert.Equal(t, DefaultDetectorConfig().ImageSize, store.records[0].ImageSize)
	assert.Equal(t, models.StatusFake, first.Verdict.VideoStatus)

	newClf := newScripted(0.1, 0.1)
	cache := NewVerdictCache(8)
	next := NewAnalyzer(detectorForModel(opener, newClf, "deepfake_model_v2"), cache, store, nil)
	second, err := next.Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, 2, newClf.calls, "the new model scores the video itself")
	assert.Equal(t, models.StatusReal, second.Verdict.VideoStatus)
	require.Len(t, store.records, 2)
	assert.Equal(t, "deepfake_model_v2", store.records[1].ModelName)

	// the old model still finds its own record
	again, err := NewAnalyzer(detectorForModel(opener, oldClf, "deepfake_model"), nil, store, nil).
		Analyze(context.Background(), AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, first.Verdict, again.Verdict)
}

func TestVerdictKey_ModelAndImageSize(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.Model = "a"
	other := cfg
	other.Model = "b"
	assert.NotEqual(t, KeyFor("d", cfg), KeyFor("d", other))

	resized := cfg
	resized.ImageSize = cfg.ImageSize * 2
	assert.NotEqual(t, KeyFor("d", cfg), KeyFor("d", resized))
}

func TestAnalyzer_DigestRejectsDeviceFiles(t *testing.T) {
	if _, err := os.Stat("/dev/zero"); err != nil {
		t.Skip("no /dev/zero")
	}
	a := NewAnalyzer(newTestDetector(&fakeOpener{}, newScripted(0.1)), nil, nil, nil)

	start := time.Now()
	_, err := a.Analyze(context.Background(), AnalyzeRequest{Path: "/dev/zero", Filename: "zero"})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDigestFile_StopsWhenContextDone(t *testing.T) {
	path := writeVideo(t, "clip.mp4", "bytes")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DigestFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)

	a := NewAnalyzer(newTestDetector(&fakeOpener{}, newScripted(0.1)), nil, nil, nil)
	_, err = a.Analyze(ctx, AnalyzeRequest{Path: path, Filename: "clip.mp4"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrOpen))
}
