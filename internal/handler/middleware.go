package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"geoponto/internal/i18n"
	"geoponto/internal/model"
	"geoponto/internal/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request and negotiates its locale from
// Accept-Language.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := i18n.WithLocale(r.Context(), i18n.Negotiate(r.Header.Get("Accept-Language")))
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// TokenParser resolves a bearer token into the session's profile.
type TokenParser interface {
	Parse(token string) (*model.UserProfile, error)
}

// Auth guards routes that need a session.
type Auth struct {
	tokens TokenParser
}

func NewAuth(tokens TokenParser) *Auth {
	return &Auth{tokens: tokens}
}

// User rejects requests without a valid bearer token and stores the profile
// in the request context.
func (a *Auth) User(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, r, http.StatusUnauthorized, "error_unauthorized")
			return
		}
		user, err := a.tokens.Parse(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "error_unauthorized")
			return
		}
		next(w, r.WithContext(session.WithUser(r.Context(), user)))
	}
}

// Admin is User restricted to administrators.
func (a *Auth) Admin(next http.HandlerFunc) http.HandlerFunc {
	return a.User(func(w http.ResponseWriter, r *http.Request) {
		if !session.UserFromContext(r.Context()).IsAdmin() {
			writeError(w, r, http.StatusForbidden, "error_forbidden")
			return
		}
		next(w, r)
	})
}
