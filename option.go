package duel

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/config"
	"pkg.world.dev/duel/world"
)

type DuelOption struct {
	worldOption world.Option
	duelOption  Option
}

type Option func(*Duel)

// WithTickChannel sets the channel that decides when a tick runs. If unset, the configured tick interval is used.
// Tests can pass in a channel they control for fine-grained control over when ticks are executed.
func WithTickChannel(ch <-chan time.Time) DuelOption {
	return DuelOption{
		duelOption: func(d *Duel) {
			d.tickChannel = ch
		},
	}
}

// WithConfig skips loading the configuration from the environment.
func WithConfig(cfg config.Config) DuelOption {
	return DuelOption{
		duelOption: func(d *Duel) {
			d.config = &cfg
		},
	}
}

// WithCardSet replaces the embedded card set and the card file from the config.
func WithCardSet(set *card.Set) DuelOption {
	return DuelOption{
		duelOption: func(d *Duel) {
			d.cards = set
		},
	}
}

func WithRandSeed(seed int64) DuelOption {
	return DuelOption{
		worldOption: world.WithRandSeed(seed),
	}
}

// WithRedisClient uses an existing client instead of dialing the configured address. The server takes ownership
// of the client and closes it on shutdown.
func WithRedisClient(client *goredis.Client) DuelOption {
	return DuelOption{
		duelOption: func(d *Duel) {
			d.redisClient = client
		},
	}
}

// separateOptions separates the given options into world options and duel (this package) options.
func separateOptions(opts []DuelOption) ([]Option, []world.Option) {
	duelOpts := make([]Option, 0)
	worldOpts := make([]world.Option, 0)

	for _, opt := range opts {
		if opt.duelOption != nil {
			duelOpts = append(duelOpts, opt.duelOption)
		}
		if opt.worldOption != nil {
			worldOpts = append(worldOpts, opt.worldOption)
		}
	}

	return duelOpts, worldOpts
}
