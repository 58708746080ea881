package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ironsheep/edge-map-service/internal/imaging"
	"github.com/ironsheep/edge-map-service/internal/logger"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendErrorResponse(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
	if err != nil {
		logger.FromContext(r.Context()).Warn("failed to write error response",
			zap.String("code", code), zap.Error(err))
	}
}

// classifyError maps a pipeline failure to a response code, message and
// HTTP status.
func classifyError(err error) (code, message string, status int) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request_aborted", "Request was cancelled before processing finished", http.StatusServiceUnavailable
	case errors.Is(err, imaging.ErrDecode):
		return "invalid_image", "Failed to decode image", http.StatusBadRequest
	case errors.Is(err, imaging.ErrEmptyGrid), errors.Is(err, imaging.ErrMalformedGrid):
		return "invalid_image", "Image has no usable pixels", http.StatusBadRequest
	case errors.Is(err, imaging.ErrInvalidThresholds):
		return "invalid_thresholds", "Edge thresholds are invalid", http.StatusBadRequest
	default:
		return "processing_error", "Failed to produce edge map", http.StatusInternalServerError
	}
}
