package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/auth"
	"github.com/adarshn/notebox/internal/server/models"
)

const identityKey = "identity"

// bearerToken locates the access credential: the accessToken cookie first,
// then the Authorization header.
func bearerToken(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// requireAuth validates the access token and attaches the resolved user
// (credentials stripped) to the request context. Every note endpoint and all
// account endpoints run behind it.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			s.fail(c, fmt.Errorf("%w: token missing or malformed", common.ErrUnauthorized))
			return
		}

		claims, err := auth.ParseAccessToken(token, []byte(s.cfg.AccessTokenSecret))
		if err != nil {
			s.fail(c, fmt.Errorf("%w: invalid access token", common.ErrUnauthorized))
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			// The subject may have been deleted since the token was minted.
			s.fail(c, fmt.Errorf("%w: invalid access token", common.ErrUnauthorized))
			return
		}

		c.Set(identityKey, user.Public())
		c.Next()
	}
}

// currentUser returns the identity attached by requireAuth.
func currentUser(c *gin.Context) (*models.PublicUser, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.PublicUser)
	return user, ok
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// cors allows the single configured client origin with credentials.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && origin == s.cfg.ClientOrigin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
