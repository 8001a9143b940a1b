package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Network  NetworkConfig  `yaml:"network"`
	Cache    CacheConfig    `yaml:"cache"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	URL   string `yaml:"url"`
	WSURL string `yaml:"ws_url"`
}

type RealtimeConfig struct {
	HandshakeTimeout string `yaml:"handshake_timeout"`
	BackoffBase      string `yaml:"backoff_base"`
	BackoffCap       string `yaml:"backoff_cap"`
	MaxAttempts      int    `yaml:"max_attempts"`
}

type NetworkConfig struct {
	ProbeAddr     string `yaml:"probe_addr"`
	ProbeInterval string `yaml:"probe_interval"`
	ProbeTimeout  string `yaml:"probe_timeout"`
}

type CacheConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes the YAML and fills defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default is the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	// The built-in server URL always parses.
	_ = cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() error {
	if c.Server.URL == "" {
		c.Server.URL = "http://localhost:3000"
	}
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")

	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.Server.URL)
	}

	if c.Server.WSURL == "" {
		c.Server.WSURL = websocketURL(u)
	}
	if c.Realtime.HandshakeTimeout == "" {
		c.Realtime.HandshakeTimeout = "10s"
	}
	if c.Realtime.BackoffBase == "" {
		c.Realtime.BackoffBase = "1s"
	}
	if c.Realtime.BackoffCap == "" {
		c.Realtime.BackoffCap = "16s"
	}
	if c.Realtime.MaxAttempts == 0 {
		c.Realtime.MaxAttempts = 5
	}
	if c.Network.ProbeAddr == "" {
		c.Network.ProbeAddr = probeAddr(u)
	}
	if c.Network.ProbeInterval == "" {
		c.Network.ProbeInterval = "5s"
	}
	if c.Network.ProbeTimeout == "" {
		c.Network.ProbeTimeout = "2s"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "badger"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "./data"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "switchstack"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return nil
}

// websocketURL swaps the http scheme for ws, keeping host and path.
func websocketURL(u *url.URL) string {
	ws := *u
	switch u.Scheme {
	case "https":
		ws.Scheme = "wss"
	default:
		ws.Scheme = "ws"
	}
	return ws.String()
}

func probeAddr(u *url.URL) string {
	if port := u.Port(); port != "" {
		return net.JoinHostPort(u.Hostname(), port)
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
