package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestid"
)

// requestID echoes the caller's X-Request-ID or assigns a new one, and
// attaches a logger indexed by it to the gin context.
func requestID(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set(requestIDKey, log.FromContext(c.Request.Context()).WithIndex(requestIDKey, id))
		c.Next()
	}
}

func requestLogger(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(requestIDKey); ok {
		if log, ok := v.(Logger); ok {
			return log
		}
	}
	return fallback
}
