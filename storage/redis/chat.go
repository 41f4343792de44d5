package redis

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/protocol"
)

// chatRetention is how long the history of a room outlives its last message.
const chatRetention = 24 * time.Hour

type ChatStorage struct {
	client     *redis.Client
	keys       keyspace
	maxHistory int
}

func NewChatStorage(client *redis.Client, keys keyspace, maxHistory int) ChatStorage {
	return ChatStorage{client: client, keys: keys, maxHistory: maxHistory}
}

func (c *ChatStorage) chatKey(roomID string) string {
	return c.keys.key("chat", roomID)
}

// AppendChat stores a room message, keeping only the newest maxHistory messages.
func (c *ChatStorage) AppendChat(ctx context.Context, roomID string, msg protocol.Chat) error {
	bz, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "failed to marshal chat message")
	}
	key := c.chatKey(roomID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, bz)
		pipe.LTrim(ctx, key, int64(-c.maxHistory), -1)
		pipe.Expire(ctx, key, chatRetention)
		return nil
	})
	return eris.Wrapf(err, "failed to append chat for %s", roomID)
}

// ChatHistory returns up to limit of the newest messages, oldest first. A non-positive limit returns everything
// that is stored.
func (c *ChatStorage) ChatHistory(ctx context.Context, roomID string, limit int) ([]protocol.Chat, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	values, err := c.client.LRange(ctx, c.chatKey(roomID), start, -1).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read chat for %s", roomID)
	}
	out := make([]protocol.Chat, 0, len(values))
	for _, v := range values {
		var msg protocol.Chat
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, eris.Wrap(err, "corrupt chat entry")
		}
		out = append(out, msg)
	}
	return out, nil
}
