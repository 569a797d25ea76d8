package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"equip_shop/internal/pkg/config"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter 按 key 限流
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Limiters 各接口使用的限流器
type Limiters struct {
	Checkout RateLimiter
	Login    RateLimiter
	Webhook  RateLimiter
}

// NewLimiters 根据配置选择 memory 或 redis 后端
func NewLimiters(cfg config.RateLimitConfig, rdb *redis.Client) Limiters {
	build := func(name string, rule config.LimitRule) RateLimiter {
		if cfg.Backend == "redis" && rdb != nil {
			return NewRedisRateLimiter(rdb, "ratelimit:"+name, rule.Requests, rule.Window)
		}
		return NewIPRateLimiter(rule.Requests, rule.Window)
	}
	return Limiters{
		Checkout: build("checkout", cfg.Checkout),
		Login:    build("login", cfg.Login),
		Webhook:  build("webhook", cfg.Webhook),
	}
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 存储每个IP的令牌桶
type IPRateLimiter struct {
	ips   map[string]*ipEntry
	mu    sync.Mutex
	r     rate.Limit
	b     int
	idle  time.Duration
	now   func() time.Time
	calls int
}

// NewIPRateLimiter 每 window 允许 requests 次，突发上限同为 requests
func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		ips:  make(map[string]*ipEntry),
		r:    rate.Every(window / time.Duration(requests)),
		b:    requests,
		idle: 2 * window,
		now:  time.Now,
	}
}

func (i *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	entry, exists := i.ips[key]
	if !exists {
		entry = &ipEntry{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[key] = entry
	}
	entry.lastSeen = now

	// 每 1000 次调用顺带清理长时间未出现的 IP
	i.calls++
	if i.calls%1000 == 0 {
		for k, e := range i.ips {
			if now.Sub(e.lastSeen) > i.idle {
				delete(i.ips, k)
			}
		}
	}
	return entry.limiter.AllowN(now, 1), nil
}

// RedisRateLimiter 固定窗口计数，多实例共享
type RedisRateLimiter struct {
	rdb      *redis.Client
	prefix   string
	requests int
	window   time.Duration
	now      func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, requests int, window time.Duration) *RedisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{rdb: rdb, prefix: prefix, requests: requests, window: window, now: time.Now}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, key, strconv.FormatInt(bucket, 10))

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.requests), nil
}

// RateLimitMiddleware 按客户端 IP 限流；后端故障时放行并记录日志
func RateLimitMiddleware(limiter RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			response.Abort(c, apperror.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
