package middleware

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter stores rate limiters for each IP. Limiters of idle clients
// expire after ten windows.
type RateLimiter struct {
	limiters *cache.Cache
	requests int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	ttl := 10 * window
	return &RateLimiter{
		limiters: cache.New(ttl, ttl),
		requests: requests,
		window:   window,
	}
}

// GetLimiter returns a rate limiter for the given IP
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, ok := rl.limiters.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		rl.limiters.SetDefault(ip, limiter)
		return limiter
	}

	// Calculate rate: requests per second
	ratePerSecond := float64(rl.requests) / rl.window.Seconds()
	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), rl.requests)
	if err := rl.limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		// Lost the race with a concurrent request from the same IP.
		if v, ok := rl.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.GetLimiter(ClientIP(r))
			if !limiter.Allow() {
				writeError(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
