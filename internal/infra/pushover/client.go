// Package pushover forwards switchstack notifications to a phone.
package pushover

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"switchstack/internal/application"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

const (
	priorityQuiet  = -1
	priorityNormal = 0
	priorityHigh   = 1
)

// Client sends notifications through the Pushover messages API. Transient
// connection notices go out without sound; a lost connection or a rejected
// toggle is sent with high priority.
type Client struct {
	token    string
	userKey  string
	endpoint string
	http     *resty.Client
}

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultEndpoint)
}

func NewClientWithURL(token, userKey, endpoint string) *Client {
	return &Client{
		token:    token,
		userKey:  userKey,
		endpoint: endpoint,
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	severity := application.SeverityOf(message)

	var result, failure apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":    c.token,
			"user":     c.userKey,
			"message":  message,
			"title":    title(severity),
			"priority": strconv.Itoa(priority(severity)),
		}).
		SetResult(&result).
		SetError(&failure).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}

	if resp.IsError() || result.Status != 1 {
		if len(failure.Errors) > 0 {
			return fmt.Errorf("pushover error: %s: %s", resp.Status(), strings.Join(failure.Errors, "; "))
		}
		return fmt.Errorf("pushover error: %s", resp.Status())
	}

	return nil
}

func priority(s application.Severity) int {
	switch s {
	case application.SeverityQuiet:
		return priorityQuiet
	case application.SeverityUrgent:
		return priorityHigh
	default:
		return priorityNormal
	}
}

func title(s application.Severity) string {
	switch s {
	case application.SeverityQuiet:
		return "SwitchStack connection"
	case application.SeverityUrgent:
		return "SwitchStack needs attention"
	default:
		return "SwitchStack"
	}
}
