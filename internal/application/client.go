package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"switchstack/internal/domain"
	"switchstack/internal/observer"
	"switchstack/internal/reachability"
	"switchstack/internal/realtime"
)

// Client wires authentication, the room store, the real-time connection and
// the reachability monitor into one session lifecycle.
type Client struct {
	auth     Authenticator
	store    *Store
	conn     Connection
	network  NetworkMonitor
	notifier Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	session    context.Context
	endSession context.CancelFunc
	started    bool
	statusID  observer.ID
	messageID observer.ID
	networkID observer.ID
	wg        sync.WaitGroup
}

func NewClient(
	auth Authenticator,
	store *Store,
	conn Connection,
	network NetworkMonitor,
	notifier Notifier,
	logger *slog.Logger,
) *Client {
	return &Client{
		auth:     auth,
		store:    store,
		conn:     conn,
		network:  network,
		notifier: notifier,
		logger:   logger,
		ctx:      context.Background(),
	}
}

func (c *Client) Store() *Store { return c.store }

func (c *Client) CurrentUser() (domain.User, bool) { return c.auth.CurrentUser() }

func (c *Client) IsConnected() bool { return c.conn.IsConnected() }

func (c *Client) IsOnline() bool { return c.network.IsOnline() }

// OnStatus forwards to the connection so callers can wait for it to open.
func (c *Client) OnStatus(h func(realtime.Event)) observer.ID { return c.conn.OnStatus(h) }

func (c *Client) RemoveStatusHandler(id observer.ID) bool { return c.conn.RemoveStatusHandler(id) }

// Start hydrates the store, subscribes to the connection and network, and
// resumes the session of an already authenticated user.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.store.Hydrate(ctx); err != nil {
		c.logger.Warn("hydrating rooms", "error", err)
	}

	c.mu.Lock()
	c.statusID = c.conn.OnStatus(c.handleStatus)
	c.messageID = c.conn.OnMessage(c.store.HandleMessage)
	c.networkID = c.network.Subscribe(c.handleNetwork)
	c.mu.Unlock()

	if err := c.network.Start(ctx); err != nil {
		c.logger.Warn("starting network monitor", "error", err)
	}

	if user, ok := c.auth.CurrentUser(); ok {
		c.logger.Info("resuming session", "email", user.Email, "demo", user.Demo)
		if err := c.startSession(ctx, user); err != nil {
			c.logger.Warn("resuming session", "error", err)
		}
	}
	return nil
}

// Stop releases every goroutine and timer the client started.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	statusID, messageID, networkID := c.statusID, c.messageID, c.networkID
	c.mu.Unlock()

	c.finishSession()

	c.network.Stop()
	c.network.Unsubscribe(networkID)
	c.conn.Stop()
	c.conn.RemoveStatusHandler(statusID)
	c.conn.RemoveMessageHandler(messageID)
	c.wg.Wait()
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := c.auth.Login(ctx, email, password)
	if err != nil {
		c.notify(ctx, err.Error())
		return domain.User{}, err
	}

	c.logger.Info("logged in", "email", user.Email, "demo", user.Demo)
	c.notify(ctx, "Login successful!")
	return user, c.startSession(ctx, user)
}

func (c *Client) Register(ctx context.Context, name, email, password, confirm string) (domain.User, error) {
	user, err := c.auth.Register(ctx, name, email, password, confirm)
	if err != nil {
		c.notify(ctx, err.Error())
		return domain.User{}, err
	}

	c.logger.Info("registered", "email", user.Email)
	c.notify(ctx, "Registration successful!")
	return user, c.startSession(ctx, user)
}

// Logout ends the session. Local state is cleared only after the server
// confirms, and only once background refreshes of the session have ended.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		c.logger.Error("logging out", "error", err)
		c.notify(ctx, "Logout failed. Please try again.")
		return fmt.Errorf("logging out: %w", err)
	}

	c.finishSession()
	c.conn.Stop()
	c.wg.Wait()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("clearing rooms", "error", err)
	}

	c.logger.Info("logged out")
	c.notify(ctx, "You have been logged out")
	return nil
}

// startSession loads the server snapshot and opens the real-time connection.
// Demo sessions never leave the device.
func (c *Client) startSession(ctx context.Context, user domain.User) error {
	if user.Demo {
		return c.store.SeedDemo(ctx)
	}

	c.mu.Lock()
	if c.endSession != nil {
		c.endSession()
	}
	c.session, c.endSession = context.WithCancel(c.ctx)
	connCtx := c.ctx
	c.mu.Unlock()

	refreshErr := c.store.Refresh(ctx)
	if refreshErr != nil {
		c.logger.Warn("initial refresh", "error", refreshErr)
	}

	c.conn.Start(connCtx)
	return refreshErr
}

// finishSession cancels the session's background work. Status changes
// after this point are not reported.
func (c *Client) finishSession() {
	c.mu.Lock()
	end := c.endSession
	c.session, c.endSession = nil, nil
	c.mu.Unlock()

	if end != nil {
		end()
	}
}

func (c *Client) handleStatus(ev realtime.Event) {
	c.mu.Lock()
	ctx, active := c.ctx, c.session != nil
	c.mu.Unlock()

	if !active {
		c.logger.Debug("connection status outside a session", "status", ev.Status)
		return
	}

	switch ev.Status {
	case realtime.StatusConnected:
		c.logger.Info("connected to server")
	case realtime.StatusDisconnected:
		c.notify(ctx, MsgServerDisconnected)
	case realtime.StatusReconnecting:
		c.notify(ctx, fmt.Sprintf("%s%d...", MsgReconnecting, ev.Attempt))
	case realtime.StatusExhausted:
		c.notify(ctx, MsgReconnectExhausted)
	}
}

func (c *Client) handleNetwork(change reachability.Change) {
	ctx := c.context()

	if !change.Online {
		c.notify(ctx, MsgOffline)
		return
	}

	c.notify(ctx, MsgBackOnline)

	c.mu.Lock()
	session := c.session
	if session == nil {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if err := c.store.Refresh(session); err != nil {
			c.logger.Warn("refreshing after reconnect", "error", err)
		}
	}()
}

func (c *Client) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Client) notify(ctx context.Context, message string) {
	if err := c.notifier.Notify(ctx, message); err != nil {
		c.logger.Warn("notifying", "error", err)
	}
}
