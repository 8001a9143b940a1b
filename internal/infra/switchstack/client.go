package switchstack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"switchstack/internal/domain"
	"switchstack/internal/infra"
)

const apiPrefix = "/api/v1"

// envelope is the body of every REST response.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) failed() bool {
	return e.Status == "fail" || e.Status == "error"
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetry sets how many times an idempotent request is retried.
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait)
	}
}

// Client talks to the room and user REST API.
type Client struct {
	http    *resty.Client
	session *Session
	logger  *slog.Logger
}

func NewClient(serverURL string, session *Session, logger *slog.Logger, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")+apiPrefix).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(4*time.Second).
		SetCookieJar(session.Jar()).
		SetHeader("Accept", "application/json").
		AddRetryCondition(retryIdempotent)

	for _, opt := range opts {
		opt(rc)
	}

	return &Client{
		http:    rc,
		session: session,
		logger:  logger,
	}
}

// retryIdempotent retries GET requests that failed in transport or with a
// retryable status. Writes are never replayed.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	return infra.IsRetryableHTTPStatus(resp.StatusCode())
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var data struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := c.do(ctx, "list rooms", http.MethodGet, "/rooms", nil, &data); err != nil {
		return nil, err
	}

	c.logger.Debug("rooms fetched", "count", len(data.Rooms))
	return data.Rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, deviceID, name, icon string) (domain.Room, error) {
	body := map[string]string{"esp_id": deviceID, "name": name, "icon": icon}

	var data struct {
		Room domain.Room `json:"room"`
	}
	if err := c.do(ctx, "create room", http.MethodPost, "/rooms", body, &data); err != nil {
		return domain.Room{}, err
	}
	return data.Room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, deviceID string, patch domain.RoomPatch) error {
	return c.do(ctx, "update room", http.MethodPatch, roomPath(deviceID), patch, nil)
}

func (c *Client) DeleteRoom(ctx context.Context, deviceID string) error {
	return c.do(ctx, "delete room", http.MethodDelete, roomPath(deviceID), nil, nil)
}

func (c *Client) UpdateSwitch(ctx context.Context, deviceID, switchID string, patch domain.SwitchPatch) error {
	path := roomPath(deviceID) + "/switches/" + url.PathEscape(switchID)
	return c.do(ctx, "update switch", http.MethodPatch, path, patch, nil)
}

func (c *Client) ListRoomUsers(ctx context.Context, deviceID string) ([]domain.User, error) {
	var data struct {
		Users []domain.User `json:"users"`
	}
	if err := c.do(ctx, "list room users", http.MethodGet, roomPath(deviceID)+"/users", nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

func (c *Client) AddRoomUser(ctx context.Context, deviceID, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, "add room user", http.MethodPost, roomPath(deviceID)+"/users", body, nil)
}

func (c *Client) RemoveRoomUser(ctx context.Context, deviceID, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, "remove room user", http.MethodDelete, roomPath(deviceID)+"/users", body, nil)
}

// do executes one call and decodes the envelope's data into out. Any
// failure comes back as *domain.RemoteCallError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var env envelope
	req := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("request failed", "op", op, "error", err)
		return &domain.RemoteCallError{Op: op, Err: err}
	}

	if resp.IsError() || env.failed() {
		c.logger.Warn("request rejected",
			"op", op,
			"status_code", resp.StatusCode(),
			"message", env.Message,
		)
		return &domain.RemoteCallError{Op: op, StatusCode: resp.StatusCode(), Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.RemoteCallError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

func roomPath(deviceID string) string {
	return "/rooms/" + url.PathEscape(deviceID)
}
