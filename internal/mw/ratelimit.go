package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"parking-share-backend/internal/auth"
)

// KeyedRateLimiter stores a token bucket per caller key.
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a limiter allowing r events per second with
// burst b for each key.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (l *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// another request may have created it in between
	if limiter, exists = l.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.r, l.b)
	l.limiters[key] = limiter
	return limiter
}

// RateLimiter limits requests per caller. It runs ahead of Auth, so a caller
// presenting a valid access token is keyed by the token subject and everyone
// else by client IP. A nil issuer keys every request by IP.
func RateLimiter(r rate.Limit, b int, issuer *auth.Issuer) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Limiter(callerKey(c, issuer)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context, issuer *auth.Issuer) string {
	if u := CurrentUser(c); u != nil {
		return "user:" + u.ID
	}
	if issuer != nil {
		if raw, ok := bearerToken(c); ok {
			if claims, err := issuer.Parse(raw); err == nil {
				return "user:" + claims.Subject
			}
		}
	}
	return "ip:" + c.ClientIP()
}
