package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"careerclips-backend/internal/metrics"
)

// RateLimiter is a fixed-window counter in Redis, keyed per user when the
// request is authenticated and per remote address otherwise. All API
// replicas share the same budget.
type RateLimiter struct {
	redis  *redis.Client
	scope  string
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		scope:  scope,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) key(r *http.Request) string {
	subject := r.RemoteAddr
	if userID := GetUserID(r.Context()); userID != uuid.Nil {
		subject = userID.String()
	}
	bucket := time.Now().UnixNano() / int64(rl.window)
	return fmt.Sprintf("ratelimit:%s:%s:%d", rl.scope, subject, bucket)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := rl.key(r)

		pipe := rl.redis.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			// fail open
			log.Printf("Rate limiter unavailable for %s: %v", rl.scope, err)
			next.ServeHTTP(w, r)
			return
		}

		count := incr.Val()
		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			metrics.RateLimitRejections.WithLabelValues(rl.scope).Inc()
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
