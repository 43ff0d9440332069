// Package config holds the operator-overridable tunables of the routing
// engine (SPEC_FULL.md §6), following the mutex-guarded,
// atomically-persisted JSON config pattern used elsewhere in this
// codebase.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds the tunables an operator may override without a recompile.
// Zero values on Load/New mean "use the engine's normative default", see
// engine.Config.Validate.
type Config struct {
	SendRoutePeriodSeconds    int `json:"send_route_period_seconds,omitempty"`
	SendRouteFastReplySeconds int `json:"send_route_fast_reply_seconds,omitempty"`
	RouteExpirySeconds        int `json:"route_expiry_seconds,omitempty"`
	MaxHops                   int `json:"max_hops,omitempty"`

	ListenAddr string `json:"listen_addr,omitempty"`

	path      string
	mu        sync.RWMutex
	changedCh chan struct{}
}

// New returns an empty Config that will persist to path on every update.
func New(path string) *Config {
	return &Config{
		path:      path,
		changedCh: make(chan struct{}, 1),
	}
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	cfg := New(path)
	if err := cfg.UpdateFromJSON(data); err != nil {
		return nil, fmt.Errorf("error decoding config: %v", err)
	}

	return cfg, nil
}

// UpdateFromJSON decodes raw JSON into the config, persists it, and
// notifies any Changed() waiter. Fields absent from data keep their
// current values.
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	if err := c.saveLocked(); err != nil {
		return err
	}

	c.notifyChanged()

	return nil
}

func (c *Config) notifyChanged() {
	select {
	case c.changedCh <- struct{}{}:
	default:
	}
}

// Changed signals whenever the config is updated via UpdateFromJSON.
func (c *Config) Changed() <-chan struct{} {
	return c.changedCh
}

// SendRoutePeriod returns the configured value, or zero if unset (the
// caller should fall back to the engine default).
func (c *Config) SendRoutePeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.SendRoutePeriodSeconds) * time.Second
}

func (c *Config) SendRouteFastReply() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.SendRouteFastReplySeconds) * time.Second
}

func (c *Config) RouteExpiry() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.RouteExpirySeconds) * time.Second
}

func (c *Config) ListenAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ListenAddr
}

func (c *Config) MaxHopsOverride() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MaxHops
}

// saveLocked assumes c.mu is held.
func (c *Config) saveLocked() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshalling config: %v", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
