package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/service"
)

// maxBodyBytes bounds request bodies accepted by DecodeJSONBody
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message}, statusCode)
}

// StatusFromError maps engine errors onto HTTP status codes
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrAlreadyRunning),
		errors.Is(err, inventory.ErrAlreadyResolved),
		errors.Is(err, inventory.ErrInvalidState),
		errors.Is(err, inventory.ErrSupplierDisabled):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, inventory.ErrInvalidSchedule),
		errors.Is(err, inventory.ErrInvalidResolution):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status StatusFromError picks.
// Internal errors are logged and replaced by a generic message.
func WriteServiceError(w http.ResponseWriter, err error, action string) {
	status := StatusFromError(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("Failed to %s: %v", action, err)
		WriteErrorResponse(w, fmt.Sprintf("Failed to %s", action), status)
		return
	}
	WriteErrorResponse(w, err.Error(), status)
}

// DecodeJSONBody decodes a JSON request body into dst, rejecting unknown
// fields and trailing data
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", service.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", service.ErrInvalidRequest)
	}
	return nil
}
