package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"pkg.world.dev/duel/internal/assert"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	assert.NilError(t, err)
	assert.Equal(t, defaultConfig, *cfg)
}

func TestConfig_LoadFromEnv(t *testing.T) {
	wantCfg := defaultConfig
	wantCfg.Port = "5050"
	wantCfg.RedisAddress = "redis:6380"
	wantCfg.RedisPassword = "bar"
	wantCfg.Namespace = "baz"
	wantCfg.LogLevel = "debug"
	wantCfg.TurnDuration = 45 * time.Second
	wantCfg.InitialHandSize = 3

	t.Setenv("DUEL_PORT", wantCfg.Port)
	t.Setenv("DUEL_REDIS_ADDRESS", wantCfg.RedisAddress)
	t.Setenv("DUEL_REDIS_PASSWORD", wantCfg.RedisPassword)
	t.Setenv("DUEL_NAMESPACE", wantCfg.Namespace)
	t.Setenv("DUEL_LOG_LEVEL", wantCfg.LogLevel)
	t.Setenv("DUEL_TURN_DURATION", "45s")
	t.Setenv("DUEL_INITIAL_HAND_SIZE", "3")

	gotCfg, err := Load(nil)
	assert.NilError(t, err)
	assert.Equal(t, wantCfg, *gotCfg)
}

func TestConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("DUEL_PORT", "5050")
	t.Setenv("DUEL_NAMESPACE", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	assert.NilError(t, flags.Parse([]string{"--port", "6060", "--tick-interval", "250ms"}))

	cfg, err := Load(flags)
	assert.NilError(t, err)
	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	// unset flags must not shadow the environment
	assert.Equal(t, "from-env", cfg.Namespace)
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duel.toml")
	assert.NilError(t, os.WriteFile(path, []byte("starting_health = 30\nmax_energy = 7\n"), 0o600))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load(nil)
	assert.NilError(t, err)
	assert.Equal(t, 30, cfg.StartingHealth)
	assert.Equal(t, 7, cfg.MaxEnergy)
}

func TestConfig_InvalidEnvFails(t *testing.T) {
	t.Setenv("DUEL_PORT", "not-a-port")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "port must be a number")
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "default works",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Port = "70000" },
			wantErr: true,
		},
		{
			name:    "empty namespace",
			modify:  func(c *Config) { c.Namespace = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: true,
		},
		{
			name:    "zero tick interval",
			modify:  func(c *Config) { c.TickInterval = 0 },
			wantErr: true,
		},
		{
			name:    "negative turn duration",
			modify:  func(c *Config) { c.TurnDuration = -time.Second },
			wantErr: true,
		},
		{
			name:    "empty hand is allowed",
			modify:  func(c *Config) { c.InitialHandSize = 0 },
			wantErr: false,
		},
		{
			name:    "no health",
			modify:  func(c *Config) { c.StartingHealth = 0 },
			wantErr: true,
		},
		{
			name:    "no energy",
			modify:  func(c *Config) { c.MaxEnergy = 0 },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Check(t, err != nil)
			} else {
				assert.NilError(t, err)
			}
		})
	}
}
