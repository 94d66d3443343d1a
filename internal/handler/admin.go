package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"geoponto/internal/model"
	"geoponto/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// defaultExportDays is the range exported when no dates are given.
const defaultExportDays = 30

type Stats interface {
	Stats(ctx context.Context, companyID string, now time.Time) (*model.SystemStats, error)
}

type Exporter interface {
	Export(ctx context.Context, companyID string, from, to time.Time, w io.Writer) error
}

type AdminHandler struct {
	stats    Stats
	exporter Exporter
	auth     *Auth
	loc      *time.Location
	now      func() time.Time
}

func NewAdminHandler(stats Stats, exporter Exporter, auth *Auth, loc *time.Location) *AdminHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{stats: stats, exporter: exporter, auth: auth, loc: loc, now: time.Now}
}

// HandleStats returns the dashboard figures of the admin's company.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	stats, err := h.stats.Stats(r.Context(), user.CompanyID, h.now())
	if err != nil {
		writeServiceError(w, r, "compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleExport downloads the records between ?from= and ?to= (inclusive
// dates, YYYY-MM-DD) as a spreadsheet.
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	t := h.now().In(h.loc)
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.loc)
	from, to := today.AddDate(0, 0, -defaultExportDays+1), today

	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = time.ParseInLocation(time.DateOnly, v, h.loc); err != nil {
			writeError(w, r, http.StatusBadRequest, "error_bad_request")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.ParseInLocation(time.DateOnly, v, h.loc); err != nil {
			writeError(w, r, http.StatusBadRequest, "error_bad_request")
			return
		}
	}

	user := session.UserFromContext(r.Context())
	var buf bytes.Buffer
	if err := h.exporter.Export(r.Context(), user.CompanyID, from, to.AddDate(0, 0, 1), &buf); err != nil {
		writeServiceError(w, r, "export records", err)
		return
	}

	name := fmt.Sprintf("pontos_%s_%s.xlsx", from.Format(time.DateOnly), to.Format(time.DateOnly))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/stats", h.auth.Admin(h.HandleStats))
	mux.HandleFunc("GET /api/admin/export", h.auth.Admin(h.HandleExport))
}
