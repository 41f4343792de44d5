package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	DefaultRoomBlock = 100
	roomSeqTimeout   = 2 * time.Second
)

// RoomSequence hands out room numbers that stay unique across restarts. Numbers are reserved from redis in blocks
// so only one call in every block size goes over the network. Numbers left in a block when the process exits are
// never used.
type RoomSequence struct {
	client *redis.Client
	key    string
	block  int64

	mu    sync.Mutex
	next  int64
	limit int64
}

func NewRoomSequence(client *redis.Client, keys keyspace, block int64) *RoomSequence {
	if block <= 0 {
		block = DefaultRoomBlock
	}
	return &RoomSequence{client: client, key: keys.key("rooms", "seq"), block: block}
}

func (s *RoomSequence) NextRoomNumber() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= s.limit {
		ctx, cancel := context.WithTimeout(context.Background(), roomSeqTimeout)
		defer cancel()
		high, err := s.client.IncrBy(ctx, s.key, s.block).Result()
		if err != nil {
			return 0, eris.Wrap(err, "failed to reserve room numbers")
		}
		s.next, s.limit = high-s.block, high
	}
	n := s.next
	s.next++
	return uint64(n), nil
}
