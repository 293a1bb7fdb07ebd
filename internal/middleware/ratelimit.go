package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// WindowCounter increments the hit counter stored under key and returns the new value.
// The counter expires after window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps fixed window counters in Redis
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type RateLimitConfig struct {
	Window    time.Duration
	Limit     int
	KeyPrefix string
}

// RateLimiter allows each user Limit requests per fixed Window
type RateLimiter struct {
	counter WindowCounter
	config  RateLimitConfig
	now     func() time.Time
}

func NewRateLimiter(counter WindowCounter, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{counter: counter, config: config, now: time.Now}
}

// NewRecipeCreationRateLimiter limits recipe creation per user per hour
func NewRecipeCreationRateLimiter(counter WindowCounter, perHour int) *RateLimiter {
	return NewRateLimiter(counter, RateLimitConfig{
		Window:    time.Hour,
		Limit:     perHour,
		KeyPrefix: "rate_limit:recipe_creation",
	})
}

// IsAllowed counts a request by userID and reports whether it fits in the window
func (rl *RateLimiter) IsAllowed(ctx context.Context, userID uint) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	resetTime := windowStart.Add(rl.config.Window)
	key := fmt.Sprintf("%s:%d:%d", rl.config.KeyPrefix, userID, windowStart.Unix())

	count, err := rl.counter.Incr(ctx, key, rl.config.Window)
	if err != nil {
		return false, 0, resetTime, err
	}

	remaining := rl.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= rl.config.Limit, remaining, resetTime, nil
}

// Middleware must run after OAuth2Auth. When the counter store is unreachable
// requests are let through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == 0 {
			c.Next()
			return
		}

		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(resetTime.Sub(rl.now()).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewAPIError(models.ErrTooManyRequests,
				fmt.Sprintf("You have exceeded the limit of %d requests per %v", rl.config.Limit, rl.config.Window)))
			return
		}

		c.Next()
	}
}
