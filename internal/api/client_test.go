package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoponto/internal/model"
)

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "employee", body["role"])
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  model.UserProfile{ID: "u1", DisplayName: "João Silva", CompanyID: "company_123"},
		})
	})
	mux.HandleFunc("POST /api/records", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Sessão inválida ou expirada"})
			return
		}
		assert.Equal(t, "pt-BR", r.Header.Get("Accept-Language"))
		var rec model.PointRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec.Status = model.RecordStatusWarning
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("GET /api/records", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]model.PointRecord{{ID: "r2"}, {ID: "r1"}})
	})
	mux.HandleFunc("GET /api/records/today", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.PointRecord{{ID: "r2", Type: model.RecordTypeEntry}})
	})
	mux.HandleFunc("GET /api/company", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Company{ID: "company_123", AllowedRadius: 200})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSession(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL, "pt-BR")
	ctx := context.Background()

	_, err := c.AppendRecord(ctx, model.PointRecord{ID: "r1"})
	require.Error(t, err)
	assert.False(t, Rejected(err))
	assert.ErrorContains(t, err, "Sessão inválida")

	user, err := c.Login(ctx, "", "", model.UserRoleEmployee)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	saved, err := c.AppendRecord(ctx, model.PointRecord{ID: "r1", Type: model.RecordTypeEntry})
	require.NoError(t, err)
	assert.Equal(t, model.RecordStatusWarning, saved.Status)

	history, err := c.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "r2", history[0].ID)

	today, err := c.Today(ctx)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	company, err := c.Company(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, company.AllowedRadius)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "").AppendRecord(context.Background(), model.PointRecord{ID: "r1"})
	require.Error(t, err)
	assert.False(t, Rejected(err))
}

func TestRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Bad request", err: &Error{Status: 400}, want: true},
		{name: "Forbidden", err: &Error{Status: 403}, want: true},
		{name: "Duplicate", err: fmt.Errorf("append record: %w", &Error{Status: 409}), want: true},
		{name: "Expired session", err: &Error{Status: 401}},
		{name: "Timeout", err: &Error{Status: 408}},
		{name: "Throttled", err: &Error{Status: 429}},
		{name: "Server error", err: &Error{Status: 500}},
		{name: "Unavailable", err: &Error{Status: 503}},
		{name: "Transport", err: errors.New("dial tcp: connection refused")},
		{name: "Nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rejected(tt.err))
		})
	}
}

func TestClientSignsInAgainWhenSessionExpires(t *testing.T) {
	var mu sync.Mutex
	logins, valid := 0, ""

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "kiosk@empresa.com", body["email"])
		mu.Lock()
		logins++
		valid = fmt.Sprintf("tok%d", logins)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"token": valid, "user": model.UserProfile{ID: "u1"}})
	})
	mux.HandleFunc("POST /api/records", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+valid
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "expired"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.PointRecord{ID: "r1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ctx := context.Background()
	_, err := c.Login(ctx, "kiosk@empresa.com", "x", model.UserRoleEmployee)
	require.NoError(t, err)

	// the server forgets the token, as it does once it expires
	mu.Lock()
	valid = "rotated"
	mu.Unlock()

	saved, err := c.AppendRecord(ctx, model.PointRecord{ID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", saved.ID)
	assert.Equal(t, 2, logins)
}
