package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	fieldWins     = "wins"
	fieldLosses   = "losses"
	fieldForfeits = "forfeits"
)

type PlayerStats struct {
	Name     string `json:"name"`
	Wins     int64  `json:"wins"`
	Losses   int64  `json:"losses"`
	Forfeits int64  `json:"forfeits"`
}

type StatsStorage struct {
	client *redis.Client
	keys   keyspace
}

func NewStatsStorage(client *redis.Client, keys keyspace) StatsStorage {
	return StatsStorage{client: client, keys: keys}
}

func (s *StatsStorage) statsKey(name string) string {
	return s.keys.key("stats", name)
}

// RecordOutcome bumps the winner's wins and the loser's losses in one transaction. Either name may be empty.
func (s *StatsStorage) RecordOutcome(ctx context.Context, winner, loser string, forfeit bool) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if winner != "" {
			pipe.HIncrBy(ctx, s.statsKey(winner), fieldWins, 1)
		}
		if loser != "" {
			pipe.HIncrBy(ctx, s.statsKey(loser), fieldLosses, 1)
			if forfeit {
				pipe.HIncrBy(ctx, s.statsKey(loser), fieldForfeits, 1)
			}
		}
		return nil
	})
	return eris.Wrap(err, "failed to record match outcome")
}

// PlayerStats returns zero stats for players that never finished a match.
func (s *StatsStorage) PlayerStats(ctx context.Context, name string) (PlayerStats, error) {
	values, err := s.client.HGetAll(ctx, s.statsKey(name)).Result()
	if err != nil {
		return PlayerStats{}, eris.Wrapf(err, "failed to read stats for %q", name)
	}
	stats := PlayerStats{Name: name}
	for field, target := range map[string]*int64{
		fieldWins:     &stats.Wins,
		fieldLosses:   &stats.Losses,
		fieldForfeits: &stats.Forfeits,
	} {
		raw, ok := values[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return PlayerStats{}, eris.Wrapf(err, "corrupt %s for %q", field, name)
		}
		*target = n
	}
	return stats, nil
}
