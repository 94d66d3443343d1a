package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"geoponto/internal/model"
	"geoponto/internal/session"
)

var validate = validator.New()

type Sessions interface {
	TokenParser
	Login(ctx context.Context, email, password string, role model.UserRole) (string, *model.UserProfile, error)
}

type SessionHandler struct {
	sessions Sessions
	auth     *Auth
}

func NewSessionHandler(sessions Sessions, auth *Auth) *SessionHandler {
	return &SessionHandler{sessions: sessions, auth: auth}
}

type LoginRequest struct {
	Email    string         `json:"email" validate:"omitempty,email"`
	Password string         `json:"password"`
	Role     model.UserRole `json:"role" validate:"required,oneof=admin employee"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  *model.UserProfile `json:"user"`
}

// HandleLogin signs a user in. Credentials are not verified.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "error_bad_request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "error_bad_request")
		return
	}

	token, user, err := h.sessions.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// HandleMe returns the profile of the current session.
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.UserFromContext(r.Context()))
}

func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.HandleLogin)
	mux.HandleFunc("GET /api/session", h.auth.User(h.HandleMe))
}
