package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MessagesPerMinute int // Sustained messages per session per minute
	BurstSize         int // Allow burst of N requests
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SessionRateLimiter keeps one token bucket per session.
type SessionRateLimiter struct {
	config   RateLimiterConfig
	limiters map[uuid.UUID]*sessionLimiter
	mu       sync.Mutex
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionRateLimiter creates a new session-based rate limiter. Non-positive
// settings fall back to 20 messages per minute with a burst of 5.
func NewSessionRateLimiter(config RateLimiterConfig, logger *zap.Logger) *SessionRateLimiter {
	if config.MessagesPerMinute <= 0 {
		config.MessagesPerMinute = 20
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 5
	}
	return &SessionRateLimiter{
		config:   config,
		limiters: make(map[uuid.UUID]*sessionLimiter),
		now:      time.Now,
		logger:   logger,
	}
}

func (srl *SessionRateLimiter) get(sessionID uuid.UUID) *rate.Limiter {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	entry, exists := srl.limiters[sessionID]
	if !exists {
		every := rate.Limit(float64(srl.config.MessagesPerMinute) / 60.0)
		entry = &sessionLimiter{limiter: rate.NewLimiter(every, srl.config.BurstSize)}
		srl.limiters[sessionID] = entry
	}
	entry.lastSeen = srl.now()
	return entry.limiter
}

// AllowMessage checks if a message can be sent for the given session
func (srl *SessionRateLimiter) AllowMessage(sessionID uuid.UUID) bool {
	return srl.get(sessionID).AllowN(srl.now(), 1)
}

// Remaining returns the whole tokens left for a session.
func (srl *SessionRateLimiter) Remaining(sessionID uuid.UUID) int {
	srl.mu.Lock()
	entry, exists := srl.limiters[sessionID]
	srl.mu.Unlock()
	if !exists {
		return srl.config.BurstSize
	}
	return max(0, int(entry.limiter.TokensAt(srl.now())))
}

// Sweep forgets sessions not seen for maxAge and returns how many were dropped.
func (srl *SessionRateLimiter) Sweep(maxAge time.Duration) int {
	cutoff := srl.now().Add(-maxAge)

	srl.mu.Lock()
	defer srl.mu.Unlock()

	removed := 0
	for id, entry := range srl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(srl.limiters, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (srl *SessionRateLimiter) Len() int {
	srl.mu.Lock()
	defer srl.mu.Unlock()
	return len(srl.limiters)
}

// RateLimitMiddleware creates a Gin middleware for rate limiting. It must run
// after SessionMiddleware.
func RateLimitMiddleware(limiter *SessionRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := SessionID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not initialized"})
			return
		}

		allowed := limiter.AllowMessage(sessionID)
		limit := limiter.config.BurstSize
		remaining := limiter.Remaining(sessionID)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			loggerFrom(c).Warn("Rate limit exceeded",
				zap.String("session_id", sessionID.String()),
				zap.Int("limit", limit))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
