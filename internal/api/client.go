// Package api is the kiosk's client for the GeoPonto server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"geoponto/internal/model"
)

// Error is a request the server answered with a failure status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Rejected reports whether err is a final answer from the server about the
// request itself. Transport failures, server errors, expired sessions,
// timeouts and throttling are worth retrying and are not rejections.
func Rejected(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}

func unauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL    string
	locale     string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
	login *credentials
}

type credentials struct {
	email    string
	password string
	role     model.UserRole
}

func NewClient(baseURL, locale string) *Client {
	return &Client{
		baseURL:    baseURL,
		locale:     locale,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Login opens a session and keeps its token for later calls. The
// credentials are kept too, so an expired session is reopened on demand.
func (c *Client) Login(ctx context.Context, email, password string, role model.UserRole) (*model.UserProfile, error) {
	body := map[string]string{"email": email, "password": password, "role": string(role)}
	var resp struct {
		Token string             `json:"token"`
		User  *model.UserProfile `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/session", body, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.mu.Lock()
	c.token = resp.Token
	c.login = &credentials{email: email, password: password, role: role}
	c.mu.Unlock()
	return resp.User, nil
}

// Company fetches the geofence configuration of the session's company.
func (c *Client) Company(ctx context.Context) (*model.Company, error) {
	var company model.Company
	if err := c.call(ctx, http.MethodGet, "/api/company", nil, &company); err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &company, nil
}

// AppendRecord hands a finished record to the server's sink.
func (c *Client) AppendRecord(ctx context.Context, record model.PointRecord) (*model.PointRecord, error) {
	var saved model.PointRecord
	if err := c.call(ctx, http.MethodPost, "/api/records", record, &saved); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	return &saved, nil
}

// History lists the session user's records, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]*model.PointRecord, error) {
	var records []*model.PointRecord
	if err := c.call(ctx, http.MethodGet, "/api/records?limit="+strconv.Itoa(limit), nil, &records); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// Today lists the session user's records of the current day.
func (c *Client) Today(ctx context.Context) ([]*model.PointRecord, error) {
	var records []*model.PointRecord
	if err := c.call(ctx, http.MethodGet, "/api/records/today", nil, &records); err != nil {
		return nil, fmt.Errorf("list today: %w", err)
	}
	return records, nil
}

// call runs an authenticated request, signing in again once if the session
// has expired.
func (c *Client) call(ctx context.Context, method, path string, body any, result any) error {
	err := c.doJSON(ctx, method, path, body, result)
	if !unauthorized(err) {
		return err
	}
	c.mu.RLock()
	login := c.login
	c.mu.RUnlock()
	if login == nil {
		return err
	}
	if _, lerr := c.Login(ctx, login.email, login.password, login.role); lerr != nil {
		return err
	}
	return c.doJSON(ctx, method, path, body, result)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()
	req.Header.Set("Content-Type", "application/json")
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
