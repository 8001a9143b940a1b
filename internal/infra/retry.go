package infra

import (
	"net/http"
	"time"
)

// BackoffConfig holds the reconnect schedule for the real-time connection.
type BackoffConfig struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// DefaultBackoffConfig returns the schedule 1s, 2s, 4s, 8s, 16s.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Base:        time.Second,
		Cap:         16 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns min(Base * 2^(attempt-1), Cap). Attempts start at 1.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := c.Base
	for i := 1; i < attempt; i++ {
		if c.Cap > 0 && delay >= c.Cap {
			break
		}
		delay *= 2
	}

	if c.Cap > 0 && delay > c.Cap {
		delay = c.Cap
	}
	return delay
}

// Exhausted reports whether attempt is past the configured maximum.
func (c BackoffConfig) Exhausted(attempt int) bool {
	return attempt > c.MaxAttempts
}

// IsRetryableHTTPStatus returns true if the HTTP status code is retryable
func IsRetryableHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout ||
		statusCode >= 500
}
