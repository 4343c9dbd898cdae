package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChatCache keeps the last N chat frames per room in Redis so a joining
// connection can replay recent conversation. It is an optimization, not
// a source of truth: the message log lives in the Store, and a nil
// *ChatCache disables caching entirely.
type ChatCache struct {
	rdb   *redis.Client
	depth int64
}

func NewChatCache(addr string, depth int) *ChatCache {
	if addr == "" {
		return nil
	}
	return &ChatCache{
		rdb:   redis.NewClient(&redis.Options{Addr: addr}),
		depth: int64(depth),
	}
}

func chatKey(roomID string) string { return "chat:recent:" + roomID }

// Push prepends a marshaled message frame and trims to depth.
// Failures are logged and swallowed; the broadcast already happened.
func (c *ChatCache) Push(ctx context.Context, roomID string, frame []byte) {
	if c == nil {
		return
	}
	key := chatKey(roomID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, frame)
	pipe.LTrim(ctx, key, 0, c.depth-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("module", "storage.cache").Str("room", roomID).Msg("chat cache push failed")
	}
}

// Recent returns cached frames oldest-first.
func (c *ChatCache) Recent(ctx context.Context, roomID string) [][]byte {
	if c == nil {
		return nil
	}
	vals, err := c.rdb.LRange(ctx, chatKey(roomID), 0, c.depth-1).Result()
	if err != nil {
		log.Warn().Err(err).Str("module", "storage.cache").Str("room", roomID).Msg("chat cache read failed")
		return nil
	}
	out := make([][]byte, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		out = append(out, []byte(vals[i]))
	}
	return out
}
