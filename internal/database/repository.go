package database

import (
	"context"
	"errors"
	"fmt"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const DefaultHistoryLimit = 50

type DetectionRepository struct {
	pool *pgxpool.Pool
}

func NewDetectionRepository(pool *pgxpool.Pool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

func (r *DetectionRepository) SaveDetection(ctx context.Context, rec *models.DetectionRecord) error {
	query := `
		INSERT INTO detections (
			id, filename, digest, source, total_frames, fake_frames,
			fake_percentage, video_status, frame_threshold, model_name,
			image_size, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Filename, rec.Digest, rec.Source,
		rec.TotalFrames, rec.FakeFrames, rec.FakePercentage,
		string(rec.VideoStatus), rec.FrameThreshold, rec.ModelName,
		rec.ImageSize, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// FindByDigest returns the newest record for the content digest scored under
// the same profile, or nil when there is none.
func (r *DetectionRepository) FindByDigest(ctx context.Context, digest string, p models.ScoringProfile) (*models.DetectionRecord, error) {
	query := `
		SELECT id, filename, digest, source, total_frames, fake_frames,
			fake_percentage, video_status, frame_threshold, model_name,
			image_size, created_at
		FROM detections
		WHERE digest=$1 AND frame_threshold=$2 AND model_name=$3 AND image_size=$4
		ORDER BY created_at DESC
		LIMIT 1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, digest, p.FrameThreshold, p.ModelName, p.ImageSize))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find detection by digest: %w", err)
	}
	return rec, nil
}

func (r *DetectionRepository) ListRecent(ctx context.Context, limit int) ([]models.DetectionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `
		SELECT id, filename, digest, source, total_frames, fake_frames,
			fake_percentage, video_status, frame_threshold, model_name,
			image_size, created_at
		FROM detections
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var out []models.DetectionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *DetectionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (*models.DetectionRecord, error) {
	rec := &models.DetectionRecord{}
	var status string
	err := row.Scan(
		&rec.ID, &rec.Filename, &rec.Digest, &rec.Source,
		&rec.TotalFrames, &rec.FakeFrames, &rec.FakePercentage,
		&status, &rec.FrameThreshold, &rec.ModelName,
		&rec.ImageSize, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.VideoStatus = models.VideoStatus(status)
	return rec, nil
}
