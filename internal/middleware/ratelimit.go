package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/nexus-partners/admin-backend/internal/app/metrics"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const rateWindow = time.Minute

// RateLimiter bounds requests per caller per minute. Counters live in Redis
// so the budget holds across replicas; with no Redis, or when Redis fails,
// a per-process token bucket stands in. Limiter failures never block
// requests.
type RateLimiter struct {
	rdb      *redis.Client
	limit    int
	burst    int
	log      *logger.Logger
	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter allowing perMinute requests per
// caller. The Redis client may be nil.
func NewRateLimiter(rdb *redis.Client, perMinute, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		rdb:      rdb,
		limit:    perMinute,
		burst:    burst,
		log:      log,
		fallback: make(map[string]*rate.Limiter),
	}
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)

		allowed, remaining, reset := rl.allow(r, key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			metrics.RecordRateLimited()
			rl.log.WithField("key", key).WithField("path", r.URL.Path).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
			se := errors.RateLimitExceeded(rl.limit, "1m")
			httputil.WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, se.Details)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(r *http.Request, key string) (bool, int, time.Time) {
	now := time.Now()
	windowEnd := now.Truncate(rateWindow).Add(rateWindow)

	if rl.rdb != nil {
		redisKey := fmt.Sprintf("ratelimit:%s:%d", key, now.Truncate(rateWindow).Unix())
		count, err := rl.rdb.Incr(r.Context(), redisKey).Result()
		if err == nil {
			if count == 1 {
				rl.rdb.Expire(r.Context(), redisKey, rateWindow)
			}
			remaining := rl.limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			return int(count) <= rl.limit, remaining, windowEnd
		}
		rl.log.WithError(err).Warn("rate counter unavailable, using local limiter")
	}

	limiter := rl.localLimiter(key)
	if !limiter.Allow() {
		return false, 0, windowEnd
	}
	remaining := int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, windowEnd
}

func (rl *RateLimiter) localLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Bound the map when many distinct callers accumulate.
	if len(rl.fallback) > 10000 {
		rl.fallback = make(map[string]*rate.Limiter)
	}
	limiter, ok := rl.fallback[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(rl.limit)/rateWindow.Seconds()), rl.burst)
		rl.fallback[key] = limiter
	}
	return limiter
}

// callerKey identifies the caller for counting. The limiter runs ahead of
// token verification in the chain, so the admin ID is not in the context
// yet; a digest of the bearer token keys authenticated callers per admin,
// and anonymous traffic falls back to the client IP.
func callerKey(r *http.Request) string {
	if id := GetAdminID(r.Context()); id != "" {
		return id
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		sum := sha256.Sum256([]byte(strings.TrimSpace(auth[7:])))
		return "tok:" + hex.EncodeToString(sum[:8])
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
