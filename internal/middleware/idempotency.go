package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader   = "Idempotency-Key"
	idempotencyLockTTL  = 30 * time.Second
	IdempotencyCacheTTL = 24 * time.Hour

	ctxIdempotencyCacheKey = "idempotency_cache_key"
	ctxIdempotencyLockKey  = "idempotency_lock_key"
)

// Idempotency replays the cached body for a repeated Idempotency-Key and
// rejects a concurrent duplicate with 409 while the first is in flight.
// Handlers store the success body with StoreIdempotentResponse.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader(IdempotencyHeader)
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		userID := c.GetString("user_id_validated")
		// The concrete path keeps a reused key on another resource id apart.
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.Request.URL.Path, userID, idempKey)
		lockKey := cacheKey + ":lock"

		if val, err := rdb.Get(ctx, cacheKey).Result(); err == nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(val))
			c.Abort()
			return
		}

		isNew, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
		if err != nil {
			contextutil.GetLogger(ctx, zap.L()).Warn("idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !isNew {
			abortWithCode(c, http.StatusConflict, "PROCESSING", "request with this idempotency key is still being processed")
			return
		}

		c.Set(ctxIdempotencyCacheKey, cacheKey)
		c.Set(ctxIdempotencyLockKey, lockKey)

		c.Next()

		rdb.Del(ctx, lockKey)
	}
}

// StoreIdempotentResponse caches body under the request's idempotency key.
// It is a no-op when the request carried no key.
func StoreIdempotentResponse(c *gin.Context, rdb *redis.Client, body []byte) {
	if rdb == nil {
		return
	}
	cacheKey := c.GetString(ctxIdempotencyCacheKey)
	if cacheKey == "" {
		return
	}
	if err := rdb.Set(c.Request.Context(), cacheKey, body, IdempotencyCacheTTL).Err(); err != nil {
		contextutil.GetLogger(c.Request.Context(), zap.L()).Warn("idempotency cache write failed", zap.Error(err))
	}
}
