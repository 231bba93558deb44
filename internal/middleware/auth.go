package middleware

import (
	"context"
	"net/http"
	"strings"

	"salescrm/internal/apierror"
	"salescrm/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	SessionKey = "session"
)

// sessionTokens lists the tokens the request carries: an Authorization:
// Bearer header first, then the session cookie. A leftover cookie must not
// shadow an explicit header.
func sessionTokens(c *gin.Context, cookieName string) []string {
	var tokens []string
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); t != "" {
			tokens = append(tokens, t)
		}
	}
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		tokens = append(tokens, v)
	}
	return tokens
}

// resolveAny returns the first token that resolves to a live session, or
// the error of the last one tried.
func resolveAny(ctx context.Context, mgr *session.Manager, tokens []string) (*session.Session, error) {
	var lastErr error
	for _, t := range tokens {
		s, err := mgr.Resolve(ctx, t)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func attach(c *gin.Context, s *session.Session) {
	c.Set(SessionKey, s)
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
}

// RequireSession rejects requests without a live session.
func RequireSession(mgr *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := sessionTokens(c, cookieName)
		if len(tokens) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}

		s, err := resolveAny(c.Request.Context(), mgr, tokens)
		if err != nil {
			status := apierror.HTTPStatus(err)
			if status >= http.StatusInternalServerError {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("session lookup failed")
			}
			c.AbortWithStatusJSON(status, apierror.Response(err))
			return
		}

		attach(c, s)
		c.Next()
	}
}

// OptionalSession attaches the session when the request carries a valid one
// and lets every request through.
func OptionalSession(mgr *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens := sessionTokens(c, cookieName); len(tokens) > 0 {
			if s, err := resolveAny(c.Request.Context(), mgr, tokens); err == nil {
				attach(c, s)
			}
		}
		c.Next()
	}
}

// GetSession is a helper to retrieve the session from the Gin context.
func GetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
