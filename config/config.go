// Package config loads the duel server configuration from defaults, an optional config file, the environment
// (DUEL_ prefix) and command line flags, in increasing order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "DUEL"
	ConfigFileEnv = "DUEL_CONFIG"

	DefaultPort            = "4040"
	DefaultRedisAddress    = "localhost:6379"
	DefaultNamespace       = "duel"
	DefaultLogLevel        = "info"
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultTurnDuration    = 30 * time.Second
	DefaultInitialHandSize = 5
	DefaultStartingHealth  = 20
	DefaultMaxEnergy       = 10
	DefaultMaxChatHistory  = 200
	DefaultRecentMatches   = 50
)

type Config struct {
	Port             string        `mapstructure:"port"`
	RedisAddress     string        `mapstructure:"redis_address"`
	RedisPassword    string        `mapstructure:"redis_password"`
	Namespace        string        `mapstructure:"namespace"`
	LogLevel         string        `mapstructure:"log_level"`
	LogPretty        bool          `mapstructure:"log_pretty"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	TurnDuration     time.Duration `mapstructure:"turn_duration"`
	InitialHandSize  int           `mapstructure:"initial_hand_size"`
	StartingHealth   int           `mapstructure:"starting_health"`
	MaxEnergy        int           `mapstructure:"max_energy"`
	MaxChatHistory   int           `mapstructure:"max_chat_history"`
	RecentMatchLimit int           `mapstructure:"recent_match_limit"`
	StatsdAddress    string        `mapstructure:"statsd_address"`
	CardFile         string        `mapstructure:"card_file"`
}

var defaultConfig = Config{
	Port:             DefaultPort,
	RedisAddress:     DefaultRedisAddress,
	RedisPassword:    "",
	Namespace:        DefaultNamespace,
	LogLevel:         DefaultLogLevel,
	LogPretty:        false,
	TickInterval:     DefaultTickInterval,
	TurnDuration:     DefaultTurnDuration,
	InitialHandSize:  DefaultInitialHandSize,
	StartingHealth:   DefaultStartingHealth,
	MaxEnergy:        DefaultMaxEnergy,
	MaxChatHistory:   DefaultMaxChatHistory,
	RecentMatchLimit: DefaultRecentMatches,
	StatsdAddress:    "",
	CardFile:         "",
}

// Default returns a copy of the built in configuration.
func Default() Config {
	return defaultConfig
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"port":              "port",
	"redis-address":     "redis_address",
	"redis-password":    "redis_password",
	"namespace":         "namespace",
	"log-level":         "log_level",
	"log-pretty":        "log_pretty",
	"tick-interval":     "tick_interval",
	"turn-duration":     "turn_duration",
	"initial-hand-size": "initial_hand_size",
	"statsd-address":    "statsd_address",
	"card-file":         "card_file",
}

// RegisterFlags adds the flags that Load knows how to bind.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("port", DefaultPort, "port the HTTP and websocket server listens on")
	flags.String("redis-address", DefaultRedisAddress, "address of the redis server")
	flags.String("redis-password", "", "password of the redis server")
	flags.String("namespace", DefaultNamespace, "prefix applied to every redis key")
	flags.String("log-level", DefaultLogLevel, "zerolog level (trace, debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human readable console logs")
	flags.Duration("tick-interval", DefaultTickInterval, "time between game ticks")
	flags.Duration("turn-duration", DefaultTurnDuration, "time a player has before the turn is ended for them")
	flags.Int("initial-hand-size", DefaultInitialHandSize, "cards drawn by each player when a match starts")
	flags.String("statsd-address", "", "dogstatsd address, metrics are disabled when empty")
	flags.String("card-file", "", "TOML card set, the embedded set is used when empty")
}

// Load builds the configuration. flags may be nil. Only flags that were explicitly set override the environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := os.Getenv(ConfigFileEnv); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "failed to read config file %q", file)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, eris.Wrapf(err, "failed to bind flag %q", name)
			}
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", defaultConfig.Port)
	v.SetDefault("redis_address", defaultConfig.RedisAddress)
	v.SetDefault("redis_password", defaultConfig.RedisPassword)
	v.SetDefault("namespace", defaultConfig.Namespace)
	v.SetDefault("log_level", defaultConfig.LogLevel)
	v.SetDefault("log_pretty", defaultConfig.LogPretty)
	v.SetDefault("tick_interval", defaultConfig.TickInterval)
	v.SetDefault("turn_duration", defaultConfig.TurnDuration)
	v.SetDefault("initial_hand_size", defaultConfig.InitialHandSize)
	v.SetDefault("starting_health", defaultConfig.StartingHealth)
	v.SetDefault("max_energy", defaultConfig.MaxEnergy)
	v.SetDefault("max_chat_history", defaultConfig.MaxChatHistory)
	v.SetDefault("recent_match_limit", defaultConfig.RecentMatchLimit)
	v.SetDefault("statsd_address", defaultConfig.StatsdAddress)
	v.SetDefault("card_file", defaultConfig.CardFile)
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return eris.Errorf("port must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.Namespace == "" {
		return eris.New("namespace must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "log level %q is invalid", c.LogLevel)
	}
	if c.TickInterval <= 0 {
		return eris.New("tick interval must be positive")
	}
	if c.TurnDuration <= 0 {
		return eris.New("turn duration must be positive")
	}
	if c.InitialHandSize < 0 {
		return eris.New("initial hand size must not be negative")
	}
	if c.StartingHealth <= 0 {
		return eris.New("starting health must be positive")
	}
	if c.MaxEnergy <= 0 {
		return eris.New("max energy must be positive")
	}
	if c.MaxChatHistory <= 0 {
		return eris.New("max chat history must be positive")
	}
	if c.RecentMatchLimit <= 0 {
		return eris.New("recent match limit must be positive")
	}
	return nil
}
