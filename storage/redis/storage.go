// Package redis persists chat history, finished matches and player statistics.
package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxChatHistory = 200
	DefaultMaxMatches     = 50
)

type Storage struct {
	Namespace string
	Client    *redis.Client
	Rooms     *RoomSequence
	ChatStorage
	MatchStorage
	StatsStorage
}

type Options = redis.Options

type Limits struct {
	MaxChatHistory int
	MaxMatches     int
}

func NewRedisStorage(options Options, namespace string, limits Limits) Storage {
	return NewStorageFromClient(redis.NewClient(&options), namespace, limits)
}

// NewStorageFromClient wraps an existing client. The storage takes ownership of the client.
func NewStorageFromClient(client *redis.Client, namespace string, limits Limits) Storage {
	if limits.MaxChatHistory <= 0 {
		limits.MaxChatHistory = DefaultMaxChatHistory
	}
	if limits.MaxMatches <= 0 {
		limits.MaxMatches = DefaultMaxMatches
	}
	keys := keyspace(namespace)
	return Storage{
		Namespace:    namespace,
		Client:       client,
		Rooms:        NewRoomSequence(client, keys, DefaultRoomBlock),
		ChatStorage:  NewChatStorage(client, keys, limits.MaxChatHistory),
		MatchStorage: NewMatchStorage(client, keys, limits.MaxMatches),
		StatsStorage: NewStatsStorage(client, keys),
	}
}

func (r *Storage) Ping(ctx context.Context) error {
	return eris.Wrap(r.Client.Ping(ctx).Err(), "redis ping failed")
}

func (r *Storage) Close() error {
	log.Info().Msg("Closing storage connection.")
	if err := r.Client.Close(); err != nil {
		return eris.Wrap(err, "")
	}
	log.Info().Msg("Successfully closed storage connection.")
	return nil
}

// keyspace builds namespaced keys, for example "duel:chat:room_0".
type keyspace string

func (k keyspace) key(parts ...string) string {
	return string(k) + ":" + strings.Join(parts, ":")
}
