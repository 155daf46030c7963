package shift

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DetailKeyPrefix = "shifts:detail:"
	DetailTTL       = 5 * time.Minute
)

func DetailKey(id string) string {
	return DetailKeyPrefix + id
}

// Cache holds shift detail responses in Redis. A nil Cache or a Cache
// without a client is a no-op, and Redis errors only ever cause a miss.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(rdb *redis.Client, logger ...*zap.Logger) *Cache {
	l := zap.L().Named("shift.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.cache")
	}
	return &Cache{rdb: rdb, ttl: DetailTTL, logger: l}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) Get(ctx context.Context, id string) (ShiftResponse, bool) {
	if !c.enabled() {
		return ShiftResponse{}, false
	}
	raw, err := c.rdb.Get(ctx, DetailKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("shift cache get failed", zap.String("shift_id", id), zap.Error(err))
		}
		return ShiftResponse{}, false
	}
	var resp ShiftResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ShiftResponse{}, false
	}
	return resp, true
}

func (c *Cache) Set(ctx context.Context, resp ShiftResponse) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, DetailKey(resp.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("shift cache set failed", zap.String("shift_id", resp.ID), zap.Error(err))
	}
}

// Invalidate drops the cached detail for id. Callers invoke it after commit.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, DetailKey(id)).Err(); err != nil {
		c.logger.Error("shift cache invalidate failed", zap.String("shift_id", id), zap.Error(err))
	}
}
