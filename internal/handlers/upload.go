package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Archive keeps a copy of every accepted upload.
type Archive interface {
	PutVideo(ctx context.Context, key, path string) error
}

type UploadConfig struct {
	Dir               string
	AllowedExtensions []string
	MaxBytes          int64
	DetectTimeout     time.Duration
}

// UploadHandler serves the two upload endpoints. Both save the file, run the
// shared analyzer and differ only in field name, messages and result shape.
type UploadHandler struct {
	analyzer *services.Analyzer
	archive  Archive
	hub      *Hub
	cfg      UploadConfig
	logger   *zap.Logger
}

func NewUploadHandler(analyzer *services.Analyzer, archive Archive, hub *Hub, cfg UploadConfig, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 512 << 20
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = 10 * time.Minute
	}
	return &UploadHandler{analyzer: analyzer, archive: archive, hub: hub, cfg: cfg, logger: logger}
}

type uploadVariant struct {
	name        string
	field       string
	noPart      string
	noSelected  string
	invalidType string
	render      func(models.VideoVerdict) interface{}
}

func (h *UploadHandler) uploadVariant() uploadVariant {
	return uploadVariant{
		name:        "upload",
		field:       "video",
		noPart:      "No video part",
		noSelected:  "No selected video",
		invalidType: "Invalid file type. Allowed types are " + strings.Join(h.cfg.AllowedExtensions, ", "),
		render:      func(v models.VideoVerdict) interface{} { return v },
	}
}

var predictVariant = uploadVariant{
	name:        "predict",
	field:       "file",
	noPart:      "No file part",
	noSelected:  "No selected file",
	invalidType: "Invalid file type",
	render:      func(v models.VideoVerdict) interface{} { return v.AsPrediction() },
}

// HandleUpload serves POST /upload with the multipart field "video".
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.uploadVariant())
}

// HandlePredict serves POST /predict with the multipart field "file".
func (h *UploadHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, predictVariant)
}

func (h *UploadHandler) handle(w http.ResponseWriter, r *http.Request, v uploadVariant) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", CodeTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, v.noPart, CodeInvalidInput)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[v.field]
	if len(headers) == 0 {
		// browsers send an empty filename when nothing was picked, which the
		// multipart reader files under values
		if _, ok := r.MultipartForm.Value[v.field]; ok {
			writeError(w, http.StatusBadRequest, v.noSelected, CodeInvalidInput)
			return
		}
		writeError(w, http.StatusBadRequest, v.noPart, CodeInvalidInput)
		return
	}
	header := headers[0]
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, v.noSelected, CodeInvalidInput)
		return
	}
	if !AllowedFile(header.Filename, h.cfg.AllowedExtensions) {
		writeError(w, http.StatusBadRequest, v.invalidType, CodeInvalidInput)
		return
	}

	log := h.logger.With(zap.String("endpoint", v.name), zap.String("video", header.Filename))

	path, digest, err := h.save(header)
	if err != nil {
		log.Error("could not save upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not save uploaded file.", CodeInternal)
		return
	}
	log = log.With(zap.String("saved_as", filepath.Base(path)))

	if h.archive != nil {
		if err := h.archive.PutVideo(r.Context(), filepath.Base(path), path); err != nil {
			log.Warn("could not archive upload", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.DetectTimeout)
	defer cancel()

	clientID := r.URL.Query().Get("client_id")
	var obs services.FrameObserver
	if h.hub != nil {
		obs = h.hub.FrameObserver(clientID)
	}

	res, err := h.analyzer.Analyze(ctx, services.AnalyzeRequest{
		Path:     path,
		Filename: header.Filename,
		Digest:   digest,
		Source:   v.name,
		Observer: obs,
	})
	if err != nil {
		f := FailureFor(err)
		log.Warn("detection failed", zap.Int("status", f.Status), zap.Error(err))
		h.notify(clientID, MsgError, models.ErrorResponse{Error: f.Message, Code: f.Code, Timestamp: time.Now().Unix()})
		writeError(w, f.Status, f.Message, f.Code)
		return
	}

	log.Info("video classified",
		zap.String("video_status", string(res.Verdict.VideoStatus)),
		zap.Float64("fake_percentage", res.Verdict.FakePercentage),
		zap.Bool("cached", res.Cached),
	)
	h.notify(clientID, MsgVerdict, res.Verdict)
	writeJSON(w, http.StatusOK, v.render(res.Verdict))
}

func (h *UploadHandler) notify(clientID, typ string, payload interface{}) {
	if h.hub == nil || clientID == "" {
		return
	}
	h.hub.Send(clientID, models.WebSocketMessage{Type: typ, Payload: payload})
}

// save writes the upload under a unique sanitized name and returns its path
// and content digest.
func (h *UploadHandler) save(header *multipart.FileHeader) (string, string, error) {
	src, err := header.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(h.cfg.Dir, uuid.NewString()+"_"+SanitizeFilename(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", "", err
	}

	_, digest, err := services.CopyWithDigest(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", "", err
	}
	return path, digest, nil
}

// AllowedFile reports whether name has one of the allowed extensions,
// compared case-insensitively.
func AllowedFile(name string, allowed []string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(a, ".")) {
			return true
		}
	}
	return false
}

// SanitizeFilename drops directory parts and keeps only ASCII letters, digits,
// '.', '_' and '-'. Spaces become underscores.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "video"
	}
	return out
}
