// Package requestid tags every request with an id that is echoed to the client and attached to logs.
package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the id in both directions.
const Header = "X-Request-ID"

const (
	ginKey    = "request_id"
	maxLength = 64
)

type ctxKey struct{}

// Middleware reuses a well formed incoming id or mints a UUID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if !acceptable(id) {
			id = uuid.NewString()
		}

		c.Set(ginKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Header(Header, id)
		c.Next()
	}
}

// acceptable rejects ids that could corrupt log lines or headers.
func acceptable(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// Value returns the id assigned to the current request.
func Value(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(ginKey)
}

// FromContext returns the id carried by a request context, for code below the HTTP layer.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
