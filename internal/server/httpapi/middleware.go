package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/services"
)

const identityKey = "identity"

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rlog := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)

		start := time.Now()
		c.Next()
		rlog.Info(c.Request.Context(), "request completed",
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireAuth verifies the bearer access token and stores the resulting
// identity in the request context for handlers downstream.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing access token"})
			return
		}

		identity, err := s.sessions.VerifyAccessToken(c.Request.Context(), token)
		if err != nil {
			status, msg := errorStatus(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func currentIdentity(c *gin.Context) (*services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*services.Identity)
	return identity, ok
}
