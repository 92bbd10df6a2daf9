package httpapi

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/avolkov/tiergate/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const identityKey = "identity"

// publicRoutePattern matches routes that bypass authentication: the auth
// endpoints themselves and the API docs.
var publicRoutePattern = regexp.MustCompile(`^/v[1-9][0-9]*/(auth|docs)(/.*)?$`)

// identityFrom returns the authenticated identity attached by the
// authentication middleware, or nil on a public route.
func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}

// requestLogger tags every request with an id and logs method, path,
// status and latency.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)

		c.Next()

		s.logger.Info(c.Request.Context(), "request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// authenticate runs the bearer-token check on every request outside the
// public allow-list. Every failure mode is the same 401: a missing
// token, a malformed header, a bad signature, missing claims, a revoked
// version and a storage error are indistinguishable to the client.
func (s *HTTPServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if publicRoutePattern.MatchString(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := defaultExtractor(c.Request)
		if err != nil || token == "" {
			abortUnauthorized(c)
			return
		}

		identity, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireTier gates a route on ownership of the :userId resource plus a
// minimum tier. Both failure modes produce the same 403.
func requireTier(tier int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		if identity == nil {
			abortUnauthorized(c)
			return
		}

		owner := identity.UserID
		if param := c.Param("userId"); param != "" {
			parsed, err := strconv.ParseInt(param, 10, 64)
			if err != nil {
				abortForbidden(c)
				return
			}
			owner = parsed
		}

		if err := auth.Authorize(identity, tier, owner); err != nil {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you don't have permission to perform this action"})
}
