package switchstack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"switchstack/internal/application"
	"switchstack/internal/domain"
)

const duplicateEmailMessage = "Email already exists. Please use a different email."

// Auth implements login, registration and logout against the REST API and
// keeps the current user in the cache.
type Auth struct {
	client *Client
	cache  application.Cache
	logger *slog.Logger

	mu   sync.RWMutex
	user *domain.User
}

func NewAuth(client *Client, cache application.Cache, logger *slog.Logger) *Auth {
	return &Auth{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Restore reloads the user and session cookies saved by a previous run.
func (a *Auth) Restore(ctx context.Context) error {
	if err := a.client.session.Restore(ctx); err != nil {
		return err
	}

	raw, ok, err := a.cache.Load(ctx, application.UserKey)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if !ok {
		return nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		a.logger.Warn("discarding unreadable user", "error", err)
		return a.cache.Remove(ctx, application.UserKey)
	}

	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()

	a.logger.Info("user restored", "email", user.Email, "demo", user.Demo)
	return nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, &domain.AuthError{Op: "login", Message: "Email and password are required"}
	}

	if email == domain.DemoEmail && password == domain.DemoPassword {
		user := domain.User{Name: "Demo User", Email: email, Demo: true}
		return user, a.setUser(ctx, user)
	}

	body := map[string]string{"email": email, "password": password}
	user, err := a.authenticate(ctx, "login", "/users/login", body)
	if err != nil {
		return domain.User{}, authError("login", "Login failed. Please check your credentials.", err)
	}
	return user, nil
}

func (a *Auth) Register(ctx context.Context, name, email, password, confirm string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return domain.User{}, &domain.AuthError{Op: "register", Message: "Name, email and password are required"}
	}
	if password != confirm {
		return domain.User{}, &domain.AuthError{Op: "register", Message: "Passwords do not match"}
	}

	body := map[string]string{
		"name":            name,
		"email":           email,
		"password":        password,
		"passwordConfirm": confirm,
	}
	user, err := a.authenticate(ctx, "register", "/users/signup", body)
	if err != nil {
		var remote *domain.RemoteCallError
		if errors.As(err, &remote) && strings.Contains(strings.ToLower(remote.Message), "duplicate") {
			return domain.User{}, &domain.AuthError{Op: "register", Message: duplicateEmailMessage, Err: err}
		}
		return domain.User{}, authError("register", "Registration failed. Please try again.", err)
	}
	return user, nil
}

// Logout ends the server session. Local credentials are dropped only after
// the server accepts the logout.
func (a *Auth) Logout(ctx context.Context) error {
	user, ok := a.CurrentUser()
	if ok && !user.Demo {
		if err := a.client.do(ctx, "logout", http.MethodGet, "/users/logout", nil, nil); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()

	var errs []error
	if err := a.cache.Remove(ctx, application.UserKey); err != nil {
		errs = append(errs, fmt.Errorf("removing user: %w", err))
	}
	if err := a.client.session.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Auth) CurrentUser() (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return domain.User{}, false
	}
	return *a.user, true
}

func (a *Auth) IsAuthenticated() bool {
	_, ok := a.CurrentUser()
	return ok
}

func (a *Auth) authenticate(ctx context.Context, op, path string, body map[string]string) (domain.User, error) {
	var data struct {
		User domain.User `json:"user"`
	}
	if err := a.client.do(ctx, op, http.MethodPost, path, body, &data); err != nil {
		return domain.User{}, err
	}

	if err := a.client.session.Save(ctx); err != nil {
		a.logger.Warn("saving session", "error", err)
	}
	return data.User, a.setUser(ctx, data.User)
}

func (a *Auth) setUser(ctx context.Context, user domain.User) error {
	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := a.cache.Save(ctx, application.UserKey, string(data)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// authError converts a failed call into an AuthError carrying the server
// message, or fallback when the server sent none.
func authError(op, fallback string, err error) error {
	msg := fallback
	var remote *domain.RemoteCallError
	if errors.As(err, &remote) && remote.Message != "" {
		msg = remote.Message
	}
	return &domain.AuthError{Op: op, Message: msg, Err: err}
}
