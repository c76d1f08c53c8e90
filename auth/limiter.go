package auth

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// AttemptLimiter throttles failed sign-ins per email. Each email may fail
// maxAttempts times, after which it is locked until the bucket refills over
// the lockout window. Idle entries expire after the lockout window.
type AttemptLimiter struct {
	limiters    *cache.Cache
	maxAttempts int
	lockout     time.Duration
}

func NewAttemptLimiter(maxAttempts int, lockout time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &AttemptLimiter{
		limiters:    cache.New(lockout, lockout),
		maxAttempts: maxAttempts,
		lockout:     lockout,
	}
}

// Blocked reports whether key has no failed attempts left.
func (l *AttemptLimiter) Blocked(key string) bool {
	v, ok := l.limiters.Get(normalizeKey(key))
	if !ok {
		return false
	}
	return v.(*rate.Limiter).Tokens() < 1
}

// Fail records a failed attempt for key.
func (l *AttemptLimiter) Fail(key string) {
	key = normalizeKey(key)
	limiter, ok := l.get(key)
	if !ok {
		every := rate.Every(l.lockout / time.Duration(l.maxAttempts))
		limiter = rate.NewLimiter(every, l.maxAttempts)
		// Another failure may have created the entry first.
		if err := l.limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
			if existing, found := l.get(key); found {
				limiter = existing
			}
		}
	}
	limiter.Allow()
	l.limiters.Set(key, limiter, cache.DefaultExpiration)
}

// Reset clears the failures of key after a successful sign-in.
func (l *AttemptLimiter) Reset(key string) {
	l.limiters.Delete(normalizeKey(key))
}

func (l *AttemptLimiter) get(key string) (*rate.Limiter, bool) {
	v, ok := l.limiters.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*rate.Limiter), true
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
