package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"

	"go.uber.org/zap"
)

const Version = "1.0.0"

type HistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.DetectionRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the JSON endpoints under /api.
type APIHandler struct {
	classifier services.HealthChecker
	db         Pinger
	history    HistoryStore
	hub        *Hub
	metrics    *services.Metrics
	logger     *zap.Logger
}

// NewAPIHandler wires the /api endpoints. db and history may be nil when the
// database is disabled.
func NewAPIHandler(classifier services.HealthChecker, db Pinger, history HistoryStore, hub *Hub, metrics *services.Metrics, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = services.NewMetrics()
	}
	return &APIHandler{
		classifier: classifier,
		db:         db,
		history:    history,
		hub:        hub,
		metrics:    metrics,
		logger:     logger,
	}
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	classifierUp := h.classifier != nil && h.classifier.HealthCheck(ctx)
	dbUp := false
	if h.db != nil {
		dbUp = h.db.Ping(ctx) == nil
	}

	status := "healthy"
	if !classifierUp {
		status = "degraded"
	}

	activeClients := 0
	if h.hub != nil {
		activeClients = h.hub.Count()
	}

	h.logger.Debug("health check", zap.Bool("classifier", classifierUp), zap.Bool("database", dbUp))
	writeJSON(w, http.StatusOK, models.HealthStatus{
		Status:        status,
		Classifier:    classifierUp,
		Database:      dbUp,
		ActiveClients: activeClients,
		Timestamp:     time.Now().Format(time.RFC3339),
		Version:       Version,
	})
}

func (h *APIHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	snap := h.metrics.Snapshot()
	if h.hub != nil {
		snap.ActiveClients = h.hub.Count()
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleHistory lists stored verdicts, newest first. ?limit= caps the result.
func (h *APIHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled", CodeUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000", CodeInvalidInput)
			return
		}
		limit = n
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("could not list detections", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error.", CodeInternal)
		return
	}
	if records == nil {
		records = []models.DetectionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"detections": records,
		"count":      len(records),
	})
}
