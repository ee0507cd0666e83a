package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLoginLimit  = 5
	DefaultLoginWindow = 15 * time.Minute
)

// Counter increments a windowed counter and reports the hits so far and
// the time left in the window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// redisCommands is the part of the Redis client the counter uses.
type redisCommands interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

type RedisCounter struct {
	client redisCommands
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	hits, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if hits > 1 {
		ttl, err := c.client.TTL(ctx, key).Result()
		if err != nil {
			return 0, 0, err
		}
		if ttl > 0 {
			return hits, ttl, nil
		}
	}
	// First hit, or an earlier Expire never landed and the key has no TTL.
	if err := c.client.Expire(ctx, key, window).Err(); err != nil {
		return 0, 0, err
	}
	return hits, window, nil
}

type RateLimiter struct {
	counter Counter
	name    string
	limit   int64
	window  time.Duration
	log     logrus.FieldLogger
}

func NewRateLimiter(counter Counter, name string, limit int, window time.Duration, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{counter: counter, name: name, limit: int64(limit), window: window, log: log}
}

// Limit rejects a client with 429 once it exceeds the limit inside one
// window. Counter failures let the request through.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		key := fmt.Sprintf("ratelimit:%s:%s", l.name, ip)
		hits, ttl, err := l.counter.Hit(r.Context(), key, l.window)
		if err != nil {
			l.log.WithError(err).WithField("key", key).Error("Rate limit counter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if hits > l.limit {
			if ttl <= 0 {
				ttl = l.window
			}
			l.log.WithFields(logrus.Fields{"ip": ip, "limiter": l.name, "hits": hits}).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			utils.WriteError(w, apperror.TooManyRequests("Too many attempts, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
