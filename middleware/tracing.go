package middleware

import (
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/tracing"
)

// TraceIdHeader echoes the trace id of the request logger.
const TraceIdHeader = "X-Trace-Id"

// TracingMiddleware logs the time to first byte and the total latency of each
// request under its trace id.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		writer := &tracingResponseWriter{
			ResponseWriter: c.Writer,
			context:        c,
			start:          start,
		}
		c.Writer = writer

		c.Next()

		gmw.GetLogger(c).Debug("request traced", tracing.Fields(c,
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("first_byte", writer.firstByte),
			zap.Duration("elapsed", time.Since(start)))...)
	}
}

// tracingResponseWriter wraps gin.ResponseWriter to capture first response timing
type tracingResponseWriter struct {
	gin.ResponseWriter
	context   *gin.Context
	start     time.Time
	firstByte time.Duration
	written   bool
}

func (w *tracingResponseWriter) markFirstWrite() {
	if w.written {
		return
	}
	w.written = true
	w.firstByte = time.Since(w.start)
	if id := tracing.TraceID(w.context); id != "" {
		w.ResponseWriter.Header().Set(TraceIdHeader, id)
	}
}

func (w *tracingResponseWriter) Write(data []byte) (int, error) {
	w.markFirstWrite()
	return w.ResponseWriter.Write(data)
}

func (w *tracingResponseWriter) WriteHeader(statusCode int) {
	w.markFirstWrite()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *tracingResponseWriter) WriteString(s string) (int, error) {
	w.markFirstWrite()
	return w.ResponseWriter.WriteString(s)
}
