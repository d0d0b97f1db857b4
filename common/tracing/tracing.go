// Package tracing attaches the ids of the current request to log fields.
package tracing

import (
	"context"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/helper"
)

// TraceID returns the trace id gin-middlewares assigned to c, or "".
func TraceID(c *gin.Context) string {
	traceID, err := gmw.TraceID(c)
	if err != nil {
		return ""
	}
	return traceID.String()
}

// Fields prepends trace_id and request_id to fields when c carries them.
func Fields(c *gin.Context, fields ...zap.Field) []zap.Field {
	ids := make([]zap.Field, 0, 2)
	if id := TraceID(c); id != "" {
		ids = append(ids, zap.String("trace_id", id))
	}
	if id := c.GetString(helper.RequestIdKey); id != "" {
		ids = append(ids, zap.String("request_id", id))
	}
	if len(ids) == 0 {
		return fields
	}
	return append(ids, fields...)
}

// FieldsFromContext is Fields for a context derived from a gin request.
// Other contexts leave fields unchanged.
func FieldsFromContext(ctx context.Context, fields ...zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	c, ok := gmw.GetGinCtxFromStdCtx(ctx)
	if !ok {
		return fields
	}
	return Fields(c, fields...)
}
