// Package config loads process configuration for the repository's
// commands. Values come from built-in defaults, then an optional TOML or
// YAML file, then OOFTN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OOFTN_"

type Config struct {
	Engine    EngineConfig    `toml:"engine" yaml:"engine" envPrefix:"ENGINE_"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry" envPrefix:"OTEL_"`
	Stress    StressConfig    `toml:"stress" yaml:"stress" envPrefix:"STRESS_"`
}

type EngineConfig struct {
	MaxComponentTypes int           `toml:"max_component_types" yaml:"max_component_types" env:"MAX_COMPONENT_TYPES"`
	TickInterval      time.Duration `toml:"tick_interval" yaml:"tick_interval" env:"TICK_INTERVAL"`
	PhysicsStep       float64       `toml:"physics_step" yaml:"physics_step" env:"PHYSICS_STEP"` // seconds
	MaxPhysicsSteps   int           `toml:"max_physics_steps" yaml:"max_physics_steps" env:"MAX_PHYSICS_STEPS"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"` // "json" or "console"
}

type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled" env:"ENABLED"`
	Endpoint    string `toml:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `toml:"service_name" yaml:"service_name" env:"SERVICE_NAME"`
}

type StressConfig struct {
	Entities int           `toml:"entities" yaml:"entities" env:"ENTITIES"`
	Systems  int           `toml:"systems" yaml:"systems" env:"SYSTEMS"`
	Frames   int           `toml:"frames" yaml:"frames" env:"FRAMES"`
	Duration time.Duration `toml:"duration" yaml:"duration" env:"DURATION"` // 0 runs Frames frames as fast as possible
	Script   string        `toml:"script" yaml:"script" env:"SCRIPT"`
	Profile  string        `toml:"profile" yaml:"profile" env:"PROFILE"` // "", "cpu" or "mem"
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxComponentTypes: 64,
			TickInterval:      16 * time.Millisecond,
			PhysicsStep:       1.0 / 60.0,
			MaxPhysicsSteps:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "ecs-stress",
		},
		Stress: StressConfig{
			Entities: 10000,
			Systems:  4,
			Frames:   600,
		},
	}
}

// Validate reports every inconsistent value.
func (c *Config) Validate() error {
	var errs []error
	if n := c.Engine.MaxComponentTypes; n < 1 || n > 64 {
		errs = append(errs, fmt.Errorf("engine.max_component_types must be in [1, 64], got %d", n))
	}
	if c.Engine.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval))
	}
	if c.Engine.PhysicsStep <= 0 {
		errs = append(errs, fmt.Errorf("engine.physics_step must be positive, got %v", c.Engine.PhysicsStep))
	}
	if c.Engine.MaxPhysicsSteps < 1 {
		errs = append(errs, fmt.Errorf("engine.max_physics_steps must be at least 1, got %d", c.Engine.MaxPhysicsSteps))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}

	if c.Stress.Entities < 0 {
		errs = append(errs, fmt.Errorf("stress.entities must not be negative, got %d", c.Stress.Entities))
	}
	if c.Stress.Systems < 1 {
		errs = append(errs, fmt.Errorf("stress.systems must be at least 1, got %d", c.Stress.Systems))
	}
	if c.Stress.Frames < 1 && c.Stress.Duration <= 0 {
		errs = append(errs, errors.New("stress needs a positive frames or duration"))
	}
	switch c.Stress.Profile {
	case "", "cpu", "mem":
	default:
		errs = append(errs, fmt.Errorf("stress.profile must be cpu or mem, got %q", c.Stress.Profile))
	}
	return errors.Join(errs...)
}
