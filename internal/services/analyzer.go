package services

import (
	"context"
	"fmt"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"go.uber.org/zap"
)

// DetectionStore persists verdicts. FindByDigest returns nil, nil on a miss.
type DetectionStore interface {
	SaveDetection(ctx context.Context, rec *models.DetectionRecord) error
	FindByDigest(ctx context.Context, digest string, profile models.ScoringProfile) (*models.DetectionRecord, error)
}

type AnalyzeRequest struct {
	Path     string
	Filename string
	// Digest of the file content; computed from Path when empty.
	Digest   string
	Source   string
	Observer FrameObserver
}

type AnalyzeResult struct {
	Verdict models.VideoVerdict
	Digest  string
	Cached  bool
}

// Analyzer puts the verdict cache and the detection store in front of a
// Detector. Every front end goes through it.
type Analyzer struct {
	detector *Detector
	cache    *VerdictCache
	store    DetectionStore
	logger   *zap.Logger
}

// NewAnalyzer builds an Analyzer; cache and store may be nil.
func NewAnalyzer(detector *Detector, cache *VerdictCache, store DetectionStore, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewVerdictCache(0)
	}
	return &Analyzer{detector: detector, cache: cache, store: store, logger: logger}
}

func (a *Analyzer) Detector() *Detector { return a.detector }

func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	cfg := a.detector.Config()
	log := a.logger.With(zap.String("video", req.Filename), zap.String("source", req.Source))

	digest := req.Digest
	if digest == "" {
		d, err := DigestFile(ctx, req.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("digest %s: %w", req.Filename, ctxErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrOpen, err)
		}
		digest = d
	}

	key := KeyFor(digest, cfg)
	if v, ok := a.cache.Get(key); ok {
		log.Debug("verdict cache hit", zap.String("digest", digest))
		return &AnalyzeResult{Verdict: v, Digest: digest, Cached: true}, nil
	}

	if a.store != nil {
		rec, err := a.store.FindByDigest(ctx, digest, cfg.Profile())
		if err != nil {
			log.Warn("detection lookup failed", zap.Error(err))
		} else if rec != nil && rec.TotalFrames > 0 {
			// status is re-derived so a changed video threshold still applies
			v := NewVerdict(rec.TotalFrames, rec.FakeFrames, cfg.VideoFakePercent)
			a.cache.Put(key, v)
			log.Debug("verdict found in store", zap.String("digest", digest))
			return &AnalyzeResult{Verdict: v, Digest: digest, Cached: true}, nil
		}
	}

	verdict, err := a.detector.DetectWithObserver(ctx, req.Path, req.Observer)
	if err != nil {
		return nil, err
	}
	a.cache.Put(key, *verdict)

	if a.store != nil {
		rec := models.NewDetectionRecord(req.Filename, digest, req.Source, cfg.Profile(), *verdict)
		if err := a.store.SaveDetection(ctx, rec); err != nil {
			log.Warn("could not save detection", zap.Error(err))
		}
	}
	return &AnalyzeResult{Verdict: *verdict, Digest: digest}, nil
}
