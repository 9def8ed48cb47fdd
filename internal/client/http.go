package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/presence"
)

// HTTPClient implements HandsClient over the HTTP/JSON API.
type HTTPClient struct {
	client *resty.Client
}

var _ HandsClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client targeting baseURL (e.g.
// "http://localhost:8080"). When token is non-empty it is sent as a bearer
// token on every request. Connection errors are retried; HTTP errors are not.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		SetLogger(slogLogger{}).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})
	if token != "" {
		c.SetAuthToken(token)
	}
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		slog.Debug("api response", "method", resp.Request.Method, "url", resp.Request.URL,
			"status", resp.StatusCode(), "took", resp.Time())
		return nil
	})
	return &HTTPClient{client: c}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Sessions ---

func (c *HTTPClient) StartSession(ctx context.Context, meetingID string) (*SessionResult, error) {
	var out SessionResult
	if err := c.do(ctx, http.MethodPost, meetingPath(meetingID, "session"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) EndSession(ctx context.Context, meetingID string) (*EndResult, error) {
	var out EndResult
	if err := c.do(ctx, http.MethodDelete, meetingPath(meetingID, "session"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Stats(ctx context.Context, meetingID string) (*model.Stats, error) {
	var out model.Stats
	if err := c.do(ctx, http.MethodGet, meetingPath(meetingID, "session"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Hands ---

func (c *HTTPClient) ListHands(ctx context.Context, meetingID string) (*ListResult, error) {
	var out ListResult
	if err := c.do(ctx, http.MethodGet, meetingPath(meetingID, "hands"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Raise(ctx context.Context, meetingID string, req *RaiseRequest) (*RaiseResult, error) {
	var out RaiseResult
	if err := c.do(ctx, http.MethodPost, meetingPath(meetingID, "hands"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Lower(ctx context.Context, meetingID, participantID string) (*model.Broadcast, error) {
	var out struct {
		Broadcast *model.Broadcast `json:"broadcast"`
	}
	if err := c.do(ctx, http.MethodDelete, meetingPath(meetingID, "hands", participantID), nil, &out); err != nil {
		return nil, err
	}
	return out.Broadcast, nil
}

func (c *HTTPClient) IsRaised(ctx context.Context, meetingID, participantID string) (bool, error) {
	var out struct {
		Raised bool `json:"raised"`
	}
	if err := c.do(ctx, http.MethodGet, meetingPath(meetingID, "hands", participantID), nil, &out); err != nil {
		return false, err
	}
	return out.Raised, nil
}

func (c *HTTPClient) Dispose(ctx context.Context, meetingID, participantID string, req *DisposeRequest) (*DisposeResult, error) {
	var out DisposeResult
	if err := c.do(ctx, http.MethodPost, meetingPath(meetingID, "hands", participantID, "ack"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ClearAll(ctx context.Context, meetingID, hostID string) (*ClearResult, error) {
	var out ClearResult
	path := meetingPath(meetingID, "hands") + "?host_id=" + url.QueryEscape(hostID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Acknowledgments ---

// Acknowledgment returns the participant's acknowledgment record, or nil if
// none is within the grace period.
func (c *HTTPClient) Acknowledgment(ctx context.Context, meetingID, participantID string) (*model.AckRecord, error) {
	var out model.AckRecord
	err := c.do(ctx, http.MethodGet, meetingPath(meetingID, "acks", participantID), nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Acknowledgments(ctx context.Context, meetingID string) ([]*model.AckRecord, error) {
	var out struct {
		Acknowledgments []*model.AckRecord `json:"acknowledgments"`
	}
	if err := c.do(ctx, http.MethodGet, meetingPath(meetingID, "acks"), nil, &out); err != nil {
		return nil, err
	}
	return out.Acknowledgments, nil
}

// --- Meeting directory ---

func (c *HTTPClient) SetMeeting(ctx context.Context, meetingID string, req *MeetingRequest) (*directory.Meeting, error) {
	var out directory.Meeting
	if err := c.do(ctx, http.MethodPut, meetingPath(meetingID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetMeeting(ctx context.Context, meetingID string) (*directory.Meeting, error) {
	var out directory.Meeting
	if err := c.do(ctx, http.MethodGet, meetingPath(meetingID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteMeeting(ctx context.Context, meetingID string) error {
	return c.do(ctx, http.MethodDelete, meetingPath(meetingID), nil, nil)
}

// ListSessions returns the meetings the server has seen activity for. A
// positive staleThreshold hides meetings quiet for longer than that.
func (c *HTTPClient) ListSessions(ctx context.Context, staleThreshold time.Duration) ([]presence.Activity, error) {
	path := "/v1/sessions"
	if secs := int(staleThreshold / time.Second); secs > 0 {
		path += "?stale_threshold_secs=" + strconv.Itoa(secs)
	}
	var out struct {
		Sessions []presence.Activity `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*HealthResult, error) {
	var out HealthResult
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// do performs a request with an optional JSON body and decodes the JSON
// response into result.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) error {
	var errResp struct {
		Error string `json:"error"`
	}
	req := c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&errResp)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	if resp.IsError() {
		msg := errResp.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// meetingPath builds /v1/meetings/{id}/... with each segment escaped.
func meetingPath(meetingID string, segments ...string) string {
	var b strings.Builder
	b.WriteString("/v1/meetings/")
	b.WriteString(url.PathEscape(meetingID))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// slogLogger routes resty's internal logging through slog.
type slogLogger struct{}

func (slogLogger) Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }
func (slogLogger) Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func (slogLogger) Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
