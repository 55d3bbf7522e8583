package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/apperrors"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondValidation sends a 422 with the validation message
func (h *BaseHandler) RespondValidation(w http.ResponseWriter, message string) {
	h.RespondJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"message": message,
	})
}

// RespondServiceError maps a service error to its HTTP status; the
// fallback message covers unexpected errors without leaking internals
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		h.RespondValidation(w, verr.Message)
	case errors.Is(err, apperrors.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperrors.ErrAccessDenied):
		h.RespondError(w, http.StatusForbidden, "access denied")
	default:
		h.Logger.Error(fallback, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, fallback)
	}
}
