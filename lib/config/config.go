// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Muster binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - MUSTER_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Missing fields take
// documented defaults; invalid values fail loading.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a simulation run.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Agents     AgentsConfig     `yaml:"agents"`
	Sim        SimConfig        `yaml:"sim"`
	Perception PerceptionConfig `yaml:"perception"`
	Election   ElectionConfig   `yaml:"election"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WorldConfig sets the world bounds.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// AgentsConfig sets the agent population and platform parameters.
type AgentsConfig struct {
	Count       int     `yaml:"count"`
	MaxSpeed    float64 `yaml:"max_speed"`
	CommRange   float64 `yaml:"comm_range"`
	SensorRange float64 `yaml:"sensor_range"`
}

// SimConfig sets the tick rate and run bounds.
type SimConfig struct {
	// Dt is the simulated duration of one tick.
	Dt Duration `yaml:"dt"`
	// MaxTime bounds a run in simulated time. Zero means unbounded.
	MaxTime Duration `yaml:"max_time"`
	// Seed drives all randomness. Zero means seed from wall clock.
	Seed int64 `yaml:"seed"`
}

// PerceptionConfig configures the decision collaborator. An empty
// endpoint selects the heuristic decider.
type PerceptionConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model"`
	Timeout  Duration `yaml:"timeout"`
	Interval Duration `yaml:"interval"`
	Retries  int      `yaml:"retries"`
}

// ElectionConfig configures alpha elections.
type ElectionConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// HeartbeatConfig configures follower liveness tracking.
type HeartbeatConfig struct {
	StaleAfter Duration `yaml:"stale_after"`
}

// TelemetryConfig configures persistence. Empty paths disable the
// corresponding sink.
type TelemetryConfig struct {
	Database string `yaml:"database"`
	Trace    string `yaml:"trace"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML ("5s", "30s", "16.6ms").
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		World:  WorldConfig{Width: 1200, Height: 800},
		Agents: AgentsConfig{Count: 8, MaxSpeed: 2.0, CommRange: 150, SensorRange: 100},
		Sim: SimConfig{
			Dt:      Duration(time.Second / 60),
			MaxTime: Duration(120 * time.Second),
		},
		Perception: PerceptionConfig{
			Timeout:  Duration(3 * time.Second),
			Interval: Duration(5 * time.Second),
			Retries:  2,
		},
		Election:  ElectionConfig{Timeout: Duration(30 * time.Second)},
		Heartbeat: HeartbeatConfig{StaleAfter: Duration(10 * time.Second)},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from the MUSTER_CONFIG environment
// variable. Fails when the variable is unset; use LoadFile with an
// explicit path from a --config flag.
func Load() (*Config, error) {
	path := os.Getenv("MUSTER_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("MUSTER_CONFIG environment variable not set; " +
			"set it to the path of your muster.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Fields the
// file omits keep their defaults; the result is validated.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world bounds must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.Agents.Count < 1 {
		return fmt.Errorf("agent count must be at least 1, got %d", c.Agents.Count)
	}
	if c.Agents.MaxSpeed <= 0 {
		return fmt.Errorf("agent max speed must be positive, got %v", c.Agents.MaxSpeed)
	}
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("tick duration must be positive, got %v", c.Sim.Dt.Std())
	}
	if c.Perception.Timeout <= 0 {
		return fmt.Errorf("perception timeout must be positive, got %v", c.Perception.Timeout.Std())
	}
	if c.Perception.Retries < 1 {
		return fmt.Errorf("perception retries must be at least 1, got %d", c.Perception.Retries)
	}
	if c.Election.Timeout <= 0 {
		return fmt.Errorf("election timeout must be positive, got %v", c.Election.Timeout.Std())
	}
	if c.Heartbeat.StaleAfter <= 0 {
		return fmt.Errorf("heartbeat staleness must be positive, got %v", c.Heartbeat.StaleAfter.Std())
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
