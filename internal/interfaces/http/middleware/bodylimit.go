package middleware

import (
	"net/http"

	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects requests whose body exceeds maxBytes. A declared
// Content-Length over the limit is refused up front; bodies without one are
// capped while streaming through http.MaxBytesReader, which surfaces as a
// read error in the handler.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size"))
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
