// Package syncer talks to the modtracker server from a client process and keeps a
// reconciled local copy of one user's timers fresh.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

const defaultTimeout = 10 * time.Second

// Session is what a successful login hands back.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *model.User `json:"user"`
}

// CommitResult is the server's answer to a manual commit.
type CommitResult struct {
	Day     string                `json:"day"`
	Entries []model.DailyLogEntry `json:"entries"`
}

// NewLog describes a manual or preset entry to add.
type NewLog struct {
	UserID          string        `json:"user_id,omitempty"`
	ProjectID       string        `json:"project_id"`
	Date            string        `json:"date"`
	DurationSeconds int64         `json:"duration_seconds"`
	Kind            model.LogKind `json:"kind,omitempty"`
	Comment         string        `json:"comment,omitempty"`
}

// LogChange is the new state of an edited entry.
type LogChange struct {
	DurationSeconds int64   `json:"duration_seconds"`
	Date            string  `json:"date"`
	Comment         *string `json:"comment"`
}

// LogQuery filters a log listing. Zero fields are not sent.
type LogQuery struct {
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	From      string
	To        string
}

// Client is the HTTP storage client. Every call carries its own timeout; a timeout, a
// transport failure and a 5xx answer all surface as ErrStorageUnavailable.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		token:      token,
	}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for tokens and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var session Session
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &session, apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}
	c.SetToken(session.AccessToken)
	return &session, nil
}

// Logout revokes both tokens on the server.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, body, nil, nil)
}

// Refresh trades a refresh token for a new access token and keeps it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, body, &out, nil); err != nil {
		return "", err
	}
	c.SetToken(out.AccessToken)
	return out.AccessToken, nil
}

// GetUserProjectStates fetches the stored records of a user as stored. Rows are decoded
// loosely and normalized, so a server or another client using camelCase keys, numeric
// strings or epoch-millisecond timestamps is understood too.
func (c *Client) GetUserProjectStates(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	var rows []tracker.Raw
	if err := c.do(ctx, http.MethodGet, "/api/users/"+userID.String()+"/states", nil, nil, &rows, apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}
	return tracker.NormalizeStates(rows), nil
}

// PutUserProjectState upserts one record. Last write wins on the server.
func (c *Client) PutUserProjectState(ctx context.Context, state model.UserProjectState) error {
	path := "/api/users/" + state.UserID.String() + "/states/" + state.ProjectID.String()
	return c.do(ctx, http.MethodPut, path, nil, state, nil, apperrors.ErrInvalidState)
}

// View returns the server-side reconciled picture of the caller's timers.
func (c *Client) View(ctx context.Context) (*service.TimerView, error) {
	var view service.TimerView
	if err := c.do(ctx, http.MethodGet, "/api/timers", nil, nil, &view, nil); err != nil {
		return nil, err
	}
	return &view, nil
}

// Start starts projectID and stops whatever else was running.
func (c *Client) Start(ctx context.Context, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "start", nil)
}

// Stop banks the elapsed time of projectID.
func (c *Client) Stop(ctx context.Context, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "stop", nil)
}

// StartWithPreset replaces the banked time of projectID and starts it.
func (c *Client) StartWithPreset(ctx context.Context, projectID uuid.UUID, seconds int64) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "preset", map[string]int64{"seconds": seconds})
}

// Adjust adds deltaSeconds to the banked time of projectID, never going below zero.
func (c *Client) Adjust(ctx context.Context, projectID uuid.UUID, deltaSeconds int64) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "adjust", map[string]int64{"delta_seconds": deltaSeconds})
}

// Reset zeroes projectID and stops it.
func (c *Client) Reset(ctx context.Context, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "reset", nil)
}

// SetComment stores the session comment of projectID.
func (c *Client) SetComment(ctx context.Context, projectID uuid.UUID, text string) ([]model.UserProjectState, error) {
	return c.timerAction(ctx, projectID, "comment", map[string]string{"text": text})
}

func (c *Client) timerAction(ctx context.Context, projectID uuid.UUID, action string, body interface{}) ([]model.UserProjectState, error) {
	var out struct {
		Changed []model.UserProjectState `json:"changed"`
	}
	path := "/api/timers/" + projectID.String() + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out, apperrors.ErrInvalidState); err != nil {
		return nil, err
	}
	return out.Changed, nil
}

// Commit turns all accrued time into log entries dated day (today when empty).
func (c *Client) Commit(ctx context.Context, day string) (*CommitResult, error) {
	var out CommitResult
	if err := c.do(ctx, http.MethodPost, "/api/commit", nil, map[string]string{"today": day}, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rollover asks the server to commit the previous day if today is a new one.
func (c *Client) Rollover(ctx context.Context, today string) (*service.RolloverResult, error) {
	var out service.RolloverResult
	if err := c.do(ctx, http.MethodPost, "/api/commit/rollover", nil, map[string]string{"today": today}, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs lists log entries. Rows are normalized like timer records.
func (c *Client) Logs(ctx context.Context, q LogQuery) ([]model.DailyLogEntry, error) {
	params := url.Values{}
	if q.UserID != nil {
		params.Set("user_id", q.UserID.String())
	}
	if q.ProjectID != nil {
		params.Set("project_id", q.ProjectID.String())
	}
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}

	var rows []tracker.Raw
	if err := c.do(ctx, http.MethodGet, "/api/logs", params, nil, &rows, nil); err != nil {
		return nil, err
	}
	return tracker.NormalizeLogs(rows), nil
}

// AddLog inserts a manual or preset entry.
func (c *Client) AddLog(ctx context.Context, in NewLog) (*model.DailyLogEntry, error) {
	var entry model.DailyLogEntry
	if err := c.do(ctx, http.MethodPost, "/api/logs", nil, in, &entry, apperrors.ErrInvalidState); err != nil {
		return nil, err
	}
	return &entry, nil
}

// EditLog changes an entry and returns the audit record the server appended.
func (c *Client) EditLog(ctx context.Context, logID uuid.UUID, change LogChange) (*model.LogModificationRecord, error) {
	var record model.LogModificationRecord
	if err := c.do(ctx, http.MethodPatch, "/api/logs/"+logID.String(), nil, change, &record, apperrors.ErrLogNotFound); err != nil {
		return nil, err
	}
	return &record, nil
}

// LogHistory returns the audit trail of an entry, oldest first.
func (c *Client) LogHistory(ctx context.Context, logID uuid.UUID) ([]model.LogModificationRecord, error) {
	var records []model.LogModificationRecord
	if err := c.do(ctx, http.MethodGet, "/api/logs/"+logID.String()+"/history", nil, nil, &records, apperrors.ErrLogNotFound); err != nil {
		return nil, err
	}
	return records, nil
}

// Projects lists the caller's projects with their live timer values.
func (c *Client) Projects(ctx context.Context, includeHidden bool) ([]service.ProjectView, error) {
	var params url.Values
	if includeHidden {
		params = url.Values{"include_hidden": []string{"true"}}
	}
	var views []service.ProjectView
	if err := c.do(ctx, http.MethodGet, "/api/projects", params, nil, &views, nil); err != nil {
		return nil, err
	}
	return views, nil
}

// PersonalStats returns per-day totals of the caller for the last days ending today.
func (c *Client) PersonalStats(ctx context.Context, today string, days int) (*service.PersonalSummary, error) {
	params := url.Values{}
	if today != "" {
		params.Set("today", today)
	}
	if days > 0 {
		params.Set("days", fmt.Sprint(days))
	}
	var summary service.PersonalSummary
	if err := c.do(ctx, http.MethodGet, "/api/stats/me", params, nil, &summary, nil); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Overview returns the admin statistics.
func (c *Client) Overview(ctx context.Context, today string) (*service.Overview, error) {
	params := url.Values{}
	if today != "" {
		params.Set("today", today)
	}
	var overview service.Overview
	if err := c.do(ctx, http.MethodGet, "/api/stats/overview", params, nil, &overview, nil); err != nil {
		return nil, err
	}
	return &overview, nil
}

// do performs one request. notFound is the error a 404 maps to when the body carries no
// known code.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, notFound error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, apperrors.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %w", method, path, statusError(resp, notFound))
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return fmt.Errorf("%s %s: %w: %w", method, path, apperrors.ErrStorageUnavailable, err)
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response, notFound error) error {
	var body apperrors.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", apperrors.ErrStorageUnavailable, msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, msg)
	}
	if sentinel := apperrors.FromCode(body.Code); sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		if notFound == nil {
			notFound = apperrors.ErrInvalidState
		}
		return fmt.Errorf("%w: %s", notFound, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperrors.ErrForbidden, msg)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}
