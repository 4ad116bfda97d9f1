package middleware

import (
	"github.com/gin-gonic/gin"

	ctxlog "github.com/ErlanBelekov/blog-cms/internal/log"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDBytes = 64
)

// RequestID tags the request context and the response with an id. A
// caller-supplied X-Request-ID is reused only when it is short and made of
// safe characters, since it ends up verbatim in every log line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = ctxlog.NewRequestID()
		}

		c.Request = c.Request.WithContext(ctxlog.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch b := id[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '-', b == '_', b == '.':
		default:
			return false
		}
	}
	return true
}
