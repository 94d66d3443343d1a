package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"geoponto/internal/i18n"
	"geoponto/internal/service"
	"geoponto/internal/session"
)

// maxBody bounds request bodies. Records carry an inline JPEG selfie.
const maxBody = 8 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, messageID string) {
	writeJSON(w, status, ErrorResponse{Error: i18n.T(r.Context(), messageID)})
}

// writeServiceError maps a service failure to a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalid), errors.Is(err, session.ErrInvalidRole):
		writeError(w, r, http.StatusBadRequest, "error_bad_request")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "error_not_found")
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, r, http.StatusConflict, "error_duplicate")
	default:
		log.Printf("ERROR %s: %v", op, err)
		writeError(w, r, http.StatusInternalServerError, "error_internal")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
}
