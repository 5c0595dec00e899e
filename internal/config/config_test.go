package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/ooftn/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.Engine.MaxComponentTypes)
	assert.Equal(t, 5, cfg.Engine.MaxPhysicsSteps)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "ecs.toml", `
[engine]
max_component_types = 32
tick_interval = "10ms"

[logging]
level = "debug"
format = "json"

[stress]
entities = 500
script = "scripts/gravity.lua"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Engine.MaxComponentTypes)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 1.0/60.0, cfg.Engine.PhysicsStep, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 500, cfg.Stress.Entities)
	assert.Equal(t, "scripts/gravity.lua", cfg.Stress.Script)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ecs.yml", `
engine:
  physics_step: 0.02
  max_physics_steps: 3
telemetry:
  enabled: true
  endpoint: http://localhost:4318
stress:
  duration: 2s
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.02, cfg.Engine.PhysicsStep)
	assert.Equal(t, 3, cfg.Engine.MaxPhysicsSteps)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http://localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, "ecs-stress", cfg.Telemetry.ServiceName)
	assert.Equal(t, 2*time.Second, cfg.Stress.Duration)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "ecs.toml", `
[engine]
max_component_types = 32

[stress]
entities = 500
`)
	t.Setenv("OOFTN_ENGINE_MAX_COMPONENT_TYPES", "16")
	t.Setenv("OOFTN_LOG_LEVEL", "warn")
	t.Setenv("OOFTN_STRESS_PROFILE", "cpu")
	t.Setenv("OOFTN_ENGINE_TICK_INTERVAL", "5ms")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Engine.MaxComponentTypes)
	assert.Equal(t, 5*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "cpu", cfg.Stress.Profile)
	assert.Equal(t, 500, cfg.Stress.Entities)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	_, err = config.Load(writeFile(t, "ecs.json", `{}`))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = config.Load(writeFile(t, "bad.toml", `[engine`))
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("OOFTN_STRESS_ENTITIES", "many")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*config.Config)
		want   string
	}{
		"too many component types": {
			mutate: func(c *config.Config) { c.Engine.MaxComponentTypes = 65 },
			want:   "engine.max_component_types",
		},
		"zero tick interval": {
			mutate: func(c *config.Config) { c.Engine.TickInterval = 0 },
			want:   "engine.tick_interval",
		},
		"negative physics step": {
			mutate: func(c *config.Config) { c.Engine.PhysicsStep = -1 },
			want:   "engine.physics_step",
		},
		"no physics steps": {
			mutate: func(c *config.Config) { c.Engine.MaxPhysicsSteps = 0 },
			want:   "engine.max_physics_steps",
		},
		"bad level": {
			mutate: func(c *config.Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
		"bad format": {
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		"telemetry without endpoint": {
			mutate: func(c *config.Config) { c.Telemetry.Enabled = true },
			want:   "telemetry.endpoint",
		},
		"no systems": {
			mutate: func(c *config.Config) { c.Stress.Systems = 0 },
			want:   "stress.systems",
		},
		"no frames or duration": {
			mutate: func(c *config.Config) { c.Stress.Frames = 0 },
			want:   "frames or duration",
		},
		"bad profile": {
			mutate: func(c *config.Config) { c.Stress.Profile = "block" },
			want:   "stress.profile",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		cfg := config.Default()
		cfg.Engine.MaxPhysicsSteps = 0
		cfg.Logging.Format = "xml"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "engine.max_physics_steps")
		assert.ErrorContains(t, err, "logging.format")
	})
}
