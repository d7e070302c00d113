package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextEmailKey = "user_email"

// authRequired gates a route group on a valid session token.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			respondError(c, http.StatusUnauthorized, "Bearer token required")
			c.Abort()
			return
		}

		email, err := s.auth.Authenticate(parts[1])
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Unauthorized: invalid token")
			c.Abort()
			return
		}
		c.Set(contextEmailKey, email)
		c.Next()
	}
}
