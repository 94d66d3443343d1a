package handler

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"geoponto/internal/model"
	"geoponto/internal/session"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Points interface {
	Append(ctx context.Context, user *model.UserProfile, record model.PointRecord) (*model.PointRecord, error)
	History(ctx context.Context, userID string, limit int) ([]*model.PointRecord, error)
	Today(ctx context.Context, userID string) ([]*model.PointRecord, error)
}

type PointHandler struct {
	points Points
	auth   *Auth
}

func NewPointHandler(points Points, auth *Auth) *PointHandler {
	return &PointHandler{points: points, auth: auth}
}

// HandleAppend is the record sink: it stores a record finished by a kiosk.
func (h *PointHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var record model.PointRecord
	if err := decodeJSON(w, r, &record); err != nil {
		writeError(w, r, http.StatusBadRequest, "error_bad_request")
		return
	}

	user := session.UserFromContext(r.Context())
	if record.IP == "" {
		record.IP = clientIP(r)
	}
	saved, err := h.points.Append(r.Context(), user, record)
	if err != nil {
		writeServiceError(w, r, "append record", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleHistory lists the caller's records, newest first.
func (h *PointHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "error_bad_request")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	user := session.UserFromContext(r.Context())
	records, err := h.points.History(r.Context(), user.ID, limit)
	if err != nil {
		writeServiceError(w, r, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// HandleToday lists the caller's records of the current day.
func (h *PointHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	records, err := h.points.Today(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "list today", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (h *PointHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/records", h.auth.User(h.HandleAppend))
	mux.HandleFunc("GET /api/records", h.auth.User(h.HandleHistory))
	mux.HandleFunc("GET /api/records/today", h.auth.User(h.HandleToday))
}

func nonNil(records []*model.PointRecord) []*model.PointRecord {
	if records == nil {
		return []*model.PointRecord{}
	}
	return records
}

// clientIP is the caller's address, preferring the proxy-reported one.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
