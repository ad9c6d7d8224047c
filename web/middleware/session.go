package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const SessionCookieName = "tanyabot_session"
const CookieMaxAge = 30 * 24 * 60 * 60 // 30 days

// SessionKey is the gin context key holding the request's session uuid.
const SessionKey = "sessionID"

// SessionMiddleware reads the session cookie, issuing a new session id when
// there is none. A malformed cookie is replaced rather than rejected.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookieName)

		var sessionID uuid.UUID
		if err == nil {
			sessionID, err = uuid.Parse(cookie)
			if err != nil {
				loggerFrom(c).Debug("Replacing malformed session cookie", zap.String("cookie", cookie))
			}
		}
		if err != nil {
			sessionID = uuid.New()
			c.SetCookie(SessionCookieName, sessionID.String(), CookieMaxAge, "/", "", false, true)
		}

		c.Set(SessionKey, sessionID)
		c.Next()
	}
}

// SessionID returns the session set by SessionMiddleware.
func SessionID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// loggerFrom returns the logger the server stored on the context, or a no-op logger.
func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get("logger"); ok {
		if logger, ok := v.(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}
