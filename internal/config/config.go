// Package config loads relay settings. Values come from an optional YAML
// file (CONFIG_FILE) with environment variables layered on top; env wins.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string
	WSPath     string

	// Origins accepted at the websocket handshake; empty means same-origin
	// only, "*" disables the check.
	AllowedOrigins []string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// Optional room directory backend. Empty disables the directory.
	RedisURL string
}

// fileConfig is the YAML shape; durations are strings like "5s".
type fileConfig struct {
	ListenAddr        string   `yaml:"listen_addr"`
	WSPath            string   `yaml:"ws_path"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	HeartbeatInterval string   `yaml:"heartbeat_interval"`
	HeartbeatTimeout  string   `yaml:"heartbeat_timeout"`
	RedisURL          string   `yaml:"redis_url"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:        ":8080",
		WSPath:            "/ws",
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
	}
}

// Load builds the config from CONFIG_FILE (if set) and the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_PATH")); v != "" {
		cfg.WSPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("HEARTBEAT_INTERVAL")); v != "" {
		d, err := parsePositiveDuration("HEARTBEAT_INTERVAL", v)
		if err != nil {
			return nil, err
		}
		cfg.HeartbeatInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("HEARTBEAT_TIMEOUT")); v != "" {
		d, err := parsePositiveDuration("HEARTBEAT_TIMEOUT", v)
		if err != nil {
			return nil, err
		}
		cfg.HeartbeatTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}

	if cfg.HeartbeatTimeout <= cfg.HeartbeatInterval {
		return nil, fmt.Errorf("heartbeat timeout %s must exceed interval %s",
			cfg.HeartbeatTimeout, cfg.HeartbeatInterval)
	}
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return nil, fmt.Errorf("ws path must start with /: %q", cfg.WSPath)
	}
	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.WSPath != "" {
		cfg.WSPath = fc.WSPath
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.HeartbeatInterval != "" {
		d, err := parsePositiveDuration("heartbeat_interval", fc.HeartbeatInterval)
		if err != nil {
			return err
		}
		cfg.HeartbeatInterval = d
	}
	if fc.HeartbeatTimeout != "" {
		d, err := parsePositiveDuration("heartbeat_timeout", fc.HeartbeatTimeout)
		if err != nil {
			return err
		}
		cfg.HeartbeatTimeout = d
	}
	if fc.RedisURL != "" {
		cfg.RedisURL = fc.RedisURL
	}
	return nil
}

func parsePositiveDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
