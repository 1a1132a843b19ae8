package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/server/services"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// setAuthCookies stores both tokens as HttpOnly secure cookies with max-age
// matching their validity.
func (s *Server) setAuthCookies(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, int(s.cfg.AccessTokenValidityDuration.Seconds()), "/", "", true, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(s.cfg.RefreshTokenValidityDuration.Seconds()), "/", "", true, true)
}

// clearAuthCookies expires both auth cookies.
func (s *Server) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", true, true)
}
