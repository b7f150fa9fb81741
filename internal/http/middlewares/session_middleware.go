package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmoralesc/accounthub/internal/auth"
)

// Keep this small interface so tests can fake it easily.
type SessionVerifier interface {
	Verify(raw string) (string, error)
}

type SessionMiddleware struct {
	sessions SessionVerifier
}

func NewSessionMiddleware(sessions SessionVerifier) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// RequireSession gates a route on a valid `user` cookie and stashes the
// session email on the context.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(auth.CookieName)

		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Unauthorized: No user cookie found",
				},
			})
			return
		}

		email, err := m.sessions.Verify(raw)

		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Unauthorized: Invalid session",
				},
			})
			return
		}

		c.Set(ctxEmailKey, email)

		c.Next()
	}
}

// EmailFromContext avoids handlers knowing the magic key.
func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
