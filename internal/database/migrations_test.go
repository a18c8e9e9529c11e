package database

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS detections")

	for _, f := range files {
		body, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Down", f)
	}
}

// TestDetectionRepository runs against a real server when TEST_DATABASE_DSN is set.
func TestDetectionRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, RunMigrations(ctx, dsn))
	pool, err := Connect(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	repo := NewDetectionRepository(pool)
	digest := "test-" + time.Now().Format("150405.000000000")
	v := models.VideoVerdict{TotalFrames: 4, FakeFrames: 3, FakePercentage: 75, VideoStatus: models.StatusFake}
	profile := models.ScoringProfile{FrameThreshold: 0.5, ModelName: "deepfake_model", ImageSize: 224}
	rec := models.NewDetectionRecord("clip.mp4", digest, "test", profile, v)
	require.NoError(t, repo.SaveDetection(ctx, rec))

	got, err := repo.FindByDigest(ctx, digest, profile)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, v, got.Verdict())
	assert.Equal(t, "deepfake_model", got.ModelName)
	assert.Equal(t, 224, got.ImageSize)

	for _, other := range []models.ScoringProfile{
		{FrameThreshold: 0.9, ModelName: "deepfake_model", ImageSize: 224},
		{FrameThreshold: 0.5, ModelName: "deepfake_model_v2", ImageSize: 224},
		{FrameThreshold: 0.5, ModelName: "deepfake_model", ImageSize: 299},
	} {
		missing, err := repo.FindByDigest(ctx, digest, other)
		require.NoError(t, err)
		assert.Nil(t, missing, "%+v", other)
	}

	recent, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}
