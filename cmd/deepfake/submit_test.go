package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingUploader struct {
	keys  []string
	paths []string
	err   error
}

func (u *recordingUploader) PutVideo(_ context.Context, key, path string) error {
	if u.err != nil {
		return u.err
	}
	u.keys = append(u.keys, key)
	u.paths = append(u.paths, path)
	return nil
}

type recordingPublisher struct {
	jobs []*models.DetectionJob
}

func (p *recordingPublisher) PublishJob(_ context.Context, job *models.DetectionJob) error {
	p.jobs = append(p.jobs, job)
	return nil
}

func TestSubmitAll(t *testing.T) {
	logger = zap.NewNop()
	up := &recordingUploader{}
	pub := &recordingPublisher{}
	var out bytes.Buffer

	err := submitAll(context.Background(), &out, up, pub, []string{"/tmp/My Clip.mp4", "b.avi"})
	require.NoError(t, err)

	require.Len(t, pub.jobs, 2)
	assert.Equal(t, []string{"/tmp/My Clip.mp4", "b.avi"}, up.paths)

	first := pub.jobs[0]
	assert.Equal(t, "My Clip.mp4", first.Filename)
	assert.Equal(t, first.JobID.String()+"_My_Clip.mp4", first.VideoKey)
	assert.Equal(t, first.VideoKey, up.keys[0])

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, first.JobID.String()+"\t/tmp/My Clip.mp4", lines[0])
}

func TestSubmitAllStopsOnUploadError(t *testing.T) {
	logger = zap.NewNop()
	up := &recordingUploader{err: errors.New("bucket gone")}
	pub := &recordingPublisher{}

	err := submitAll(context.Background(), &bytes.Buffer{}, up, pub, []string{"a.mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
	assert.Empty(t, pub.jobs)
}
