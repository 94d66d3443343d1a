package handler

import (
	"context"
	"net/http"

	"geoponto/internal/model"
	"geoponto/internal/session"
)

type Companies interface {
	Get(ctx context.Context, id string) (*model.Company, error)
	Update(ctx context.Context, id string, c *model.Company) (*model.Company, error)
}

type CompanyHandler struct {
	companies Companies
	auth      *Auth
}

func NewCompanyHandler(companies Companies, auth *Auth) *CompanyHandler {
	return &CompanyHandler{companies: companies, auth: auth}
}

// HandleGet returns the geofence configuration of the caller's company.
func (h *CompanyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	c, err := h.companies.Get(r.Context(), user.CompanyID)
	if err != nil {
		writeServiceError(w, r, "get company", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleUpdate replaces the configuration. Admins only.
func (h *CompanyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var c model.Company
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, "error_bad_request")
		return
	}

	user := session.UserFromContext(r.Context())
	updated, err := h.companies.Update(r.Context(), user.CompanyID, &c)
	if err != nil {
		writeServiceError(w, r, "update company", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CompanyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/company", h.auth.User(h.HandleGet))
	mux.HandleFunc("PUT /api/company", h.auth.Admin(h.HandleUpdate))
}
