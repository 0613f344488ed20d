package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds the request budget for one limiter instance.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// RateLimitMiddleware enforces a fixed-window counter in redis, keyed by the
// client address. It runs ahead of authentication so token-guessing traffic
// is throttled too. Redis being unavailable never blocks traffic; the
// limiter fails open.
func RateLimitMiddleware(client *redis.Client, cfg RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(cfg.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := r.RemoteAddr
			key := cfg.KeyPrefix + ":" + identity

			ctx := r.Context()
			pipe := client.TxPipeline()
			incr := pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, cfg.Window)
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Error("Rate limit counter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			w.Header().Set("X-RateLimit-Limit", limit)

			if count > int64(cfg.RequestsPerWindow) {
				ttl, err := client.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = cfg.Window
				}

				logger.Warn("Rate limit exceeded",
					zap.String("identity", identity),
					zap.Int64("count", count),
					zap.Int("limit", cfg.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(cfg.RequestsPerWindow-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}
