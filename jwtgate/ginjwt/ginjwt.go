// Package ginjwt adapts a jwtgate.Gate to gin.
package ginjwt

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexlup06-authgate/jwtgate-go/jwtgate"
)

// New returns a gin middleware running g.
//
// On success the request continues with the authenticated *http.Request and
// every top-level State entry is also copied into the gin context, so
// c.Get("user") returns the verified payload. On failure the request is
// aborted with the status and JSON body of jwtgate.ErrorResponse, and the
// error is recorded with c.Error.
func New(g *jwtgate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := g.Authenticate(c.Request)
		if err != nil {
			_ = c.Error(err)
			status, body := jwtgate.ErrorResponse(err)
			if status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", jwtgate.BearerScheme)
			}
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Request = r
		if state, ok := jwtgate.StateFromContext(r.Context()); ok {
			for k, v := range state {
				c.Set(k, v)
			}
		}
		c.Next()
	}
}

// Unless returns the middleware of New wrapped so that requests matching opts
// skip the gate. Exclusions go through g.Excluded and are counted the same
// way as with jwtgate.Gate.Unless.
func Unless(g *jwtgate.Gate, opts jwtgate.UnlessOptions) gin.HandlerFunc {
	gated := New(g)
	return func(c *gin.Context) {
		if g.Excluded(c.Request, opts) {
			c.Next()
			return
		}
		gated(c)
	}
}

// Payload returns the verified payload stored under key by New.
func Payload(c *gin.Context, key string) (map[string]any, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	claims, ok := v.(map[string]any)
	return claims, ok
}
