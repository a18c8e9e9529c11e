package main

import (
	"bytes"
	"testing"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderVerdict(t *testing.T) {
	tests := []struct {
		name string
		v    models.VideoVerdict
		want string
	}{
		{
			name: "fake",
			v:    models.VideoVerdict{TotalFrames: 3, FakeFrames: 2, FakePercentage: 200.0 / 3, VideoStatus: models.StatusFake},
			want: "Total Frames: 3\nFake Frames: 2 (66.67%)\nThe video is predicted to be FAKE.\n",
		},
		{
			name: "boundary is real",
			v:    models.VideoVerdict{TotalFrames: 10, FakeFrames: 5, FakePercentage: 50, VideoStatus: models.StatusReal},
			want: "Total Frames: 10\nFake Frames: 5 (50.00%)\nThe video is predicted to be REAL.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderVerdict(&buf, tt.v))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"detect", "extract", "worker", "submit"} {
		assert.True(t, names[want], want)
	}
}

func TestDetectRequiresOneArg(t *testing.T) {
	assert.Error(t, detectCmd.Args(detectCmd, nil))
	assert.Error(t, detectCmd.Args(detectCmd, []string{"a.mp4", "b.mp4"}))
	assert.NoError(t, detectCmd.Args(detectCmd, []string{"a.mp4"}))
}
