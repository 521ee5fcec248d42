package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderProcessTime carries the server-side processing time in seconds.
const HeaderProcessTime = "X-Process-Time"

// timingWriter stamps the processing-time header just before the first byte
// of the response leaves. Gin buffers the status until the first write, so
// stamping at write time covers handlers, error responses and aborts alike.
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timingWriter) stamp() {
	if w.stamped || w.Written() {
		return
	}
	w.stamped = true
	elapsed := time.Since(w.start).Seconds()
	w.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

// ProcessTime returns a middleware that measures request handling time and
// exposes it as the X-Process-Time response header on every response,
// including error responses and unmatched routes.
func ProcessTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		tw := &timingWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Writer = tw

		c.Next()

		// Bodyless responses flush after the handler chain returns
		tw.stamp()
	}
}
