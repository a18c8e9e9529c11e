package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
)

// Error codes carried in models.ErrorResponse.Code.
const (
	CodeInvalidInput    = services.CodeInvalidInput
	CodeOpenError       = services.CodeOpenError
	CodeNoFrames        = services.CodeNoFrames
	CodeClassifierError = services.CodeClassifierError
	CodeTimeout         = services.CodeTimeout
	CodeInternal        = services.CodeInternal
	CodeTooLarge        = "TOO_LARGE"
	CodeMethod          = "METHOD_NOT_ALLOWED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeUnauthorized    = "UNAUTHORIZED"
)

// DetectionFailure describes how a pipeline error is shown to a caller.
type DetectionFailure struct {
	Status  int
	Code    string
	Message string
}

// FailureFor maps a detection error onto an HTTP status and a message that is
// safe to show. Internal details stay in the logs.
func FailureFor(err error) DetectionFailure {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return DetectionFailure{http.StatusBadRequest, CodeInvalidInput, "Invalid input."}
	case errors.Is(err, services.ErrOpen):
		return DetectionFailure{http.StatusUnprocessableEntity, CodeOpenError, "Could not open video file."}
	case errors.Is(err, services.ErrNoFrames):
		return DetectionFailure{http.StatusUnprocessableEntity, CodeNoFrames, "Video contains no decodable frames."}
	case errors.Is(err, context.DeadlineExceeded):
		return DetectionFailure{http.StatusGatewayTimeout, CodeTimeout, "Detection timed out."}
	case errors.Is(err, services.ErrClassifier):
		return DetectionFailure{http.StatusBadGateway, CodeClassifierError, "Classifier failed while scoring the video."}
	default:
		return DetectionFailure{http.StatusInternalServerError, CodeInternal, "Internal server error."}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().Unix(),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", CodeMethod)
}
