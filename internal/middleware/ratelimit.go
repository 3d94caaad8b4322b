package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/logging"
)

// tokenBucket refills one token every interval_ms up to capacity.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type limiter interface {
	take(ctx context.Context, key string) (decision, error)
}

type redisLimiter struct {
	rdb      redis.Scripter
	capacity int
	interval time.Duration
	ttl      time.Duration
}

func (l *redisLimiter) take(ctx context.Context, key string) (decision, error) {
	vals, err := tokenBucket.Run(ctx, l.rdb, []string{key},
		time.Now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		int64(l.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(vals) != 3 {
		return decision{}, redis.Nil
	}
	return decision{
		allowed:   vals[0] == 1,
		remaining: vals[1],
		retry:     time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// localLimiter keeps one x/time/rate bucket per key in process memory.
type localLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*localBucket
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastScan time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalLimiter(capacity int, interval, ttl time.Duration) *localLimiter {
	return &localLimiter{
		buckets: make(map[string]*localBucket),
		limit:   rate.Every(interval),
		burst:   capacity,
		ttl:     ttl,
	}
}

func (l *localLimiter) take(_ context.Context, key string) (decision, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastScan) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastScan = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{retry: delay}, nil
	}
	return decision{allowed: true, remaining: int64(b.lim.TokensAt(now))}, nil
}

// RateLimit limits requests per client IP across all routes. With a Redis client the bucket is
// shared across replicas; without one, or while Redis is failing, an in-process bucket is used.
func RateLimit(cfg config.RateLimitConfig, rdb redis.Scripter) echo.MiddlewareFunc {
	if !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	interval := cfg.Window / time.Duration(cfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ttl := 2 * cfg.Window
	if ttl < time.Second {
		ttl = time.Second
	}
	local := newLocalLimiter(cfg.Requests, interval, ttl)
	var shared limiter
	if rdb != nil {
		shared = &redisLimiter{rdb: rdb, capacity: cfg.Requests, interval: interval, ttl: ttl}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg.Prefix, c)

			var d decision
			var err error
			if shared != nil {
				d, err = shared.take(ctx, key)
				if err != nil {
					logging.FromContext(ctx).Warn("ratelimit_redis_failed", "error", err)
				}
			}
			if shared == nil || err != nil {
				d, _ = local.take(ctx, key)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func rateKey(prefix string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":ip:" + ip
}
