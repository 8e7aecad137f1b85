package middleware

import (
	"net/http"
	"strings"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie = "access_token"
	sessionKey        = "session"
)

// SetTokenCookie stores the access token as an HttpOnly cookie that expires
// with the token.
func SetTokenCookie(c *gin.Context, token string, maxAgeSeconds int, secure bool) {
	// Cross-origin clients in production need SameSite=None, which requires Secure.
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, token, maxAgeSeconds, "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

// Authenticate verifies the access token and attaches the caller's session
// to both the gin context and the request context. The token is read from
// the access_token cookie first, then from "Authorization: Bearer".
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		session, err := tokens.Parse(tokenString)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if _, err := session.UserID(); err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// RequireAnyPermission lets the request through when the session holds at
// least one of keys. It must run after Authenticate.
func RequireAnyPermission(keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			abortWithError(c, apperror.Unauthenticated("authorization is missing"))
			return
		}
		if !session.HasAnyPermission(keys...) {
			abortWithError(c, apperror.Unauthorized("access denied: missing permission '"+strings.Join(keys, "' or '")+"'"))
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session stored by Authenticate.
func SessionFrom(c *gin.Context) (auth.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return auth.Session{}, false
	}
	s, ok := v.(auth.Session)
	return s, ok
}

func extractToken(c *gin.Context) (string, error) {
	if tokenString, err := c.Cookie(AccessTokenCookie); err == nil && tokenString != "" {
		return tokenString, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", apperror.Unauthenticated("authorization is missing")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperror.Unauthenticated("invalid authorization format, expected 'Bearer <token>'")
	}
	return parts[1], nil
}

func abortWithError(c *gin.Context, err error) {
	ae := apperror.As(err)
	status := apperror.HTTPStatus(ae.Kind)
	c.AbortWithStatusJSON(status, response.Error(status, string(ae.Kind), ae.Message))
}
