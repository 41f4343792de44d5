package redis

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

type MatchResult struct {
	RoomID     string    `json:"room_id"`
	Winner     string    `json:"winner,omitempty"`
	WinnerName string    `json:"winner_name,omitempty"`
	Loser      string    `json:"loser,omitempty"`
	LoserName  string    `json:"loser_name,omitempty"`
	Reason     string    `json:"reason"`
	Turns      int       `json:"turns"`
	EndedAt    time.Time `json:"ended_at"`
}

type MatchStorage struct {
	client     *redis.Client
	keys       keyspace
	maxMatches int
}

func NewMatchStorage(client *redis.Client, keys keyspace, maxMatches int) MatchStorage {
	return MatchStorage{client: client, keys: keys, maxMatches: maxMatches}
}

func (m *MatchStorage) matchesKey() string {
	return m.keys.key("matches")
}

// SaveResult prepends the result to the archive and trims it to maxMatches entries.
func (m *MatchStorage) SaveResult(ctx context.Context, result MatchResult) error {
	bz, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "failed to marshal match result")
	}
	key := m.matchesKey()
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, bz)
		pipe.LTrim(ctx, key, 0, int64(m.maxMatches-1))
		return nil
	})
	return eris.Wrap(err, "failed to save match result")
}

// RecentResults returns up to limit results, newest first.
func (m *MatchStorage) RecentResults(ctx context.Context, limit int) ([]MatchResult, error) {
	if limit <= 0 || limit > m.maxMatches {
		limit = m.maxMatches
	}
	values, err := m.client.LRange(ctx, m.matchesKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read match results")
	}
	out := make([]MatchResult, 0, len(values))
	for _, v := range values {
		var res MatchResult
		if err := json.Unmarshal([]byte(v), &res); err != nil {
			return nil, eris.Wrap(err, "corrupt match result")
		}
		out = append(out, res)
	}
	return out, nil
}
