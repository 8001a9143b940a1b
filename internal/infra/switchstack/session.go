package switchstack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"switchstack/internal/application"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session holds the cookies issued by the server. The same jar is attached
// to REST calls and to the websocket handshake, and is persisted in the
// cache so separate CLI runs share one login.
type Session struct {
	base   *url.URL
	jar    *cookiejar.Jar
	cache  application.Cache
	logger *slog.Logger

	mu sync.Mutex
}

func NewSession(serverURL string, cache application.Cache, logger *slog.Logger) (*Session, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Session{
		base:   base,
		jar:    jar,
		cache:  cache,
		logger: logger,
	}, nil
}

func (s *Session) Jar() http.CookieJar {
	return s.jar
}

// Restore loads cookies saved by a previous run.
func (s *Session) Restore(ctx context.Context) error {
	raw, ok, err := s.cache.Load(ctx, application.SessionKey)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return nil
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("discarding unreadable session", "error", err)
		return s.cache.Remove(ctx, application.SessionKey)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}

	s.mu.Lock()
	s.jar.SetCookies(s.base, cookies)
	s.mu.Unlock()

	s.logger.Debug("session restored", "cookies", len(cookies))
	return nil
}

func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	cookies := s.jar.Cookies(s.base)
	s.mu.Unlock()

	if len(cookies) == 0 {
		return nil
	}

	stored := make([]storedCookie, len(cookies))
	for i, c := range cookies {
		stored[i] = storedCookie{Name: c.Name, Value: c.Value}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.cache.Save(ctx, application.SessionKey, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear expires every cookie and forgets the saved session.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	cookies := s.jar.Cookies(s.base)
	expired := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		expired[i] = &http.Cookie{Name: c.Name, Path: "/", MaxAge: -1}
	}
	s.jar.SetCookies(s.base, expired)
	s.mu.Unlock()

	if err := s.cache.Remove(ctx, application.SessionKey); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
