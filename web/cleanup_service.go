package web

import (
	"context"
	"time"

	"tanyabot/agent"
	"tanyabot/web/middleware"

	"go.uber.org/zap"
)

// CleanupService drops idle chat sessions and their rate limiters. Throttle
// counters and learned answers are never touched.
type CleanupService struct {
	sessions *agent.SessionStore
	limiter  *middleware.SessionRateLimiter
	logger   *zap.Logger
}

// NewCleanupService creates a new cleanup service instance. limiter may be nil.
func NewCleanupService(sessions *agent.SessionStore, limiter *middleware.SessionRateLimiter, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// CleanupStaleSessions removes sessions idle for longer than maxAge and
// returns how many were removed.
func (cs *CleanupService) CleanupStaleSessions(maxAge time.Duration) int {
	removed := cs.sessions.Sweep(maxAge)

	limiters := 0
	if cs.limiter != nil {
		limiters = cs.limiter.Sweep(maxAge)
	}

	if removed > 0 || limiters > 0 {
		cs.logger.Info("Stale session cleanup completed",
			zap.Int("sessions_deleted", removed),
			zap.Int("rate_limiters_deleted", limiters),
			zap.Int("sessions_remaining", cs.sessions.Len()))
	} else {
		cs.logger.Debug("No stale sessions found")
	}
	return removed
}

// DefaultCleanupInterval replaces a non-positive Run interval.
const DefaultCleanupInterval = time.Hour

// Run cleans up every interval until ctx is done.
func (cs *CleanupService) Run(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	cs.logger.Info("Session cleanup scheduled",
		zap.Duration("interval", interval),
		zap.Duration("max_age", maxAge))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.logger.Debug("Session cleanup stopped")
			return
		case <-ticker.C:
			cs.CleanupStaleSessions(maxAge)
		}
	}
}
