package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	"DEEPFAKE_DETECTOR/go-backend/internal/video"
)

// byteOpener decodes a file as one solid 4x4 frame per content byte. Files
// starting with "bad" cannot be opened.
type byteOpener struct{}

func (byteOpener) Open(_ context.Context, path string) (video.FrameSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrOpen, err)
	}
	if strings.HasPrefix(string(data), "bad") {
		return nil, fmt.Errorf("%w: corrupt container", video.ErrOpen)
	}
	frames := make([]*video.Frame, len(data))
	for i, b := range data {
		pix := make([]byte, 4*4*3)
		for j := range pix {
			pix[j] = b
		}
		frames[i] = &video.Frame{Width: 4, Height: 4, Pix: pix}
	}
	return &video.SliceSource{Frames: frames}, nil
}

// pixelClassifier scores a frame with its first normalized value, so a 0xff
// frame scores 1 and a 0x00 frame scores 0.
var pixelClassifier = services.ClassifierFunc(func(_ context.Context, t *video.Tensor) (float64, error) {
	return float64(t.Data[0]), nil
})

var failingClassifier = services.ClassifierFunc(func(context.Context, *video.Tensor) (float64, error) {
	return 0, errors.New("model server down")
})

type staticHealth bool

func (s staticHealth) HealthCheck(context.Context) bool { return bool(s) }

func newAnalyzer(clf services.Classifier) *services.Analyzer {
	d := services.NewDetector(byteOpener{}, clf, services.DefaultDetectorConfig(), services.NewMetrics(), nil)
	return services.NewAnalyzer(d, services.NewVerdictCache(16), nil, nil)
}
