package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"switchstack/config"
	"switchstack/internal/application"
	"switchstack/internal/infra"
	"switchstack/internal/infra/cache"
	"switchstack/internal/infra/netprobe"
	"switchstack/internal/infra/pushover"
	"switchstack/internal/infra/switchstack"
	"switchstack/internal/infra/websocket"
	"switchstack/internal/reachability"
	"switchstack/internal/realtime"
)

type closableCache interface {
	application.Cache
	Close() error
}

// app is the composition root shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	cache   closableCache
	auth    *switchstack.Auth
	store   *application.Store
	manager *realtime.Manager
	monitor *reachability.Monitor
	client  *application.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger := setupLogger(cfg.Log, cmd.ErrOrStderr())

	kv, err := openCache(cmd.Context(), cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	session, err := switchstack.NewSession(cfg.Server.URL, kv, logger)
	if err != nil {
		kv.Close()
		return nil, err
	}
	api := switchstack.NewClient(cfg.Server.URL, session, logger)
	auth := switchstack.NewAuth(api, kv, logger)
	if err := auth.Restore(cmd.Context()); err != nil {
		logger.Warn("restoring session", "error", err)
	}

	handshake := parseDuration(logger, "realtime.handshake_timeout", cfg.Realtime.HandshakeTimeout, 10*time.Second)
	backoff := infra.DefaultBackoffConfig()
	backoff.Base = parseDuration(logger, "realtime.backoff_base", cfg.Realtime.BackoffBase, backoff.Base)
	backoff.Cap = parseDuration(logger, "realtime.backoff_cap", cfg.Realtime.BackoffCap, backoff.Cap)
	backoff.MaxAttempts = cfg.Realtime.MaxAttempts

	manager := realtime.NewManager(realtime.Config{
		URL:              cfg.Server.WSURL,
		HandshakeTimeout: handshake,
		Backoff:          backoff,
	}, websocket.NewDialer(session.Jar(), handshake, logger), logger)

	probe := netprobe.New(netprobe.Config{
		Addr:     cfg.Network.ProbeAddr,
		Interval: parseDuration(logger, "network.probe_interval", cfg.Network.ProbeInterval, 5*time.Second),
		Timeout:  parseDuration(logger, "network.probe_timeout", cfg.Network.ProbeTimeout, 2*time.Second),
	}, logger)
	monitor := reachability.NewMonitor(probe, manager, logger)

	notifier := newNotifier(cfg.Pushover, cmd.ErrOrStderr(), logger)
	store := application.NewStore(api, kv, manager, notifier, logger)
	client := application.NewClient(auth, store, manager, monitor, notifier, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		out:     cmd.OutOrStdout(),
		cache:   kv,
		auth:    auth,
		store:   store,
		manager: manager,
		monitor: monitor,
		client:  client,
	}, nil
}

func (a *app) close() {
	a.client.Stop()
	a.manager.Stop()
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("closing cache", "error", err)
	}
}

// requireUser fails unless a session was restored.
func (a *app) requireUser() error {
	if !a.auth.IsAuthenticated() {
		return fmt.Errorf("not logged in, run 'switchstack login' first")
	}
	return nil
}

// loadRooms hydrates the store and, for server accounts, refreshes it. A
// failed refresh leaves the cached rooms in place.
func (a *app) loadRooms(ctx context.Context) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if err := a.store.Hydrate(ctx); err != nil {
		return err
	}
	if user, _ := a.auth.CurrentUser(); user.Demo {
		return a.store.SeedDemo(ctx)
	}
	if err := a.store.Refresh(ctx); err != nil {
		a.logger.Warn("showing cached rooms", "error", err)
	}
	return nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (closableCache, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemory(), nil
	case "redis":
		r := cache.NewRedis(cache.RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.Prefix,
		})
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	case "badger":
	default:
		logger.Warn("unknown cache backend, using badger", "backend", cfg.Backend)
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return cache.NewBadger(cache.BadgerOptions{
		Dir:    cfg.Dir,
		Prefix: cfg.Prefix,
		Logger: logger,
	})
}

func parseDuration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "key", key, "error", err, "value", value)
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// printNotifier shows notifications on the terminal and forwards them to
// Pushover when configured.
type printNotifier struct {
	w    io.Writer
	push application.Notifier
	log  *slog.Logger
}

func newNotifier(cfg config.PushoverConfig, w io.Writer, logger *slog.Logger) application.Notifier {
	n := &printNotifier{w: w, log: logger, push: &application.NoopNotifier{}}
	if cfg.Enabled {
		n.push = pushover.NewClient(cfg.Token, cfg.UserKey)
	}
	return n
}

func (n *printNotifier) Notify(ctx context.Context, message string) error {
	fmt.Fprintf(n.w, "» %s\n", message)
	if err := n.push.Notify(ctx, message); err != nil {
		n.log.Warn("pushover notification failed", "error", err)
	}
	return nil
}
