package tui

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

const DefaultURL = "ws://localhost:4040/ws"

type Config struct {
	URL  string `config:"DUEL_URL"`
	Name string `config:"DUEL_NAME"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{URL: DefaultURL}
	if err := config.FromEnv().To(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "failed to read client config")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return cfg, nil
}
