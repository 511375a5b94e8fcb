// Package config loads server and game settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

// First player policies.
const (
	FirstRandom   = "random"
	FirstHuman    = "human"
	FirstComputer = "computer"
)

// Config holds every tunable of the server and the terminal game.
type Config struct {
	Addr              string        `yaml:"addr"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	HumanMark         string        `yaml:"human_mark"`
	FirstPlayer       string        `yaml:"first_player"`
	ThinkDelay        time.Duration `yaml:"think_delay"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
}

// Errors returned by Validate.
var (
	ErrFirstPlayer = errors.New("first_player must be random, human or computer")
	ErrHeartbeat   = errors.New("heartbeat_interval must be positive")
	ErrBuffer      = errors.New("subscriber_buffer must be at least 1")
	ErrThinkDelay  = errors.New("think_delay must not be negative")
)

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         "console",
		HumanMark:         "o",
		FirstPlayer:       FirstRandom,
		HeartbeatInterval: 15 * time.Second,
		SubscriberBuffer:  4,
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("TTT_ADDR"); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup("TTT_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("TTT_FIRST_PLAYER"); ok && v != "" {
		c.FirstPlayer = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := domain.ParseCell(c.HumanMark); err != nil {
		return fmt.Errorf("human_mark: %w", err)
	}
	switch c.FirstPlayer {
	case FirstRandom, FirstHuman, FirstComputer:
	default:
		return fmt.Errorf("%w: %q", ErrFirstPlayer, c.FirstPlayer)
	}
	if c.ThinkDelay < 0 {
		return ErrThinkDelay
	}
	if c.HeartbeatInterval <= 0 {
		return ErrHeartbeat
	}
	if c.SubscriberBuffer < 1 {
		return ErrBuffer
	}
	return nil
}

// Human returns the configured human mark. Call after Validate.
func (c Config) Human() domain.Cell {
	m, err := domain.ParseCell(c.HumanMark)
	if err != nil {
		return domain.O
	}
	return m
}
