package redis

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const (
	// freecache enforces a 512KB minimum.
	DefaultStatsCacheSize = 1024 * 1024
	DefaultStatsCacheTTL  = 5
)

type statsStore interface {
	RecordOutcome(ctx context.Context, winner, loser string, forfeit bool) error
	PlayerStats(ctx context.Context, name string) (PlayerStats, error)
}

// StatsCache is a read-through cache in front of the stats storage. Recording an outcome evicts both players.
type StatsCache struct {
	store      statsStore
	cache      *freecache.Cache
	ttlSeconds int
}

func NewStatsCache(store statsStore, sizeBytes, ttlSeconds int) *StatsCache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultStatsCacheSize
	}
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultStatsCacheTTL
	}
	return &StatsCache{
		store:      store,
		cache:      freecache.NewCache(sizeBytes),
		ttlSeconds: ttlSeconds,
	}
}

func (c *StatsCache) PlayerStats(ctx context.Context, name string) (PlayerStats, error) {
	key := []byte(name)
	if bz, err := c.cache.Get(key); err == nil {
		var stats PlayerStats
		if err := json.Unmarshal(bz, &stats); err == nil {
			return stats, nil
		}
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warn().Err(err).Msg("stats cache read failed")
	}

	stats, err := c.store.PlayerStats(ctx, name)
	if err != nil {
		return PlayerStats{}, err
	}
	bz, err := json.Marshal(stats)
	if err != nil {
		return PlayerStats{}, eris.Wrap(err, "failed to marshal stats")
	}
	if err := c.cache.Set(key, bz, c.ttlSeconds); err != nil {
		log.Warn().Err(err).Str("player", name).Msg("failed to cache stats")
	}
	return stats, nil
}

func (c *StatsCache) RecordOutcome(ctx context.Context, winner, loser string, forfeit bool) error {
	if err := c.store.RecordOutcome(ctx, winner, loser, forfeit); err != nil {
		return err
	}
	c.cache.Del([]byte(winner))
	c.cache.Del([]byte(loser))
	return nil
}

func (c *StatsCache) EntryCount() int64 {
	return c.cache.EntryCount()
}
