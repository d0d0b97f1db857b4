package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/ctxkey"
	"github.com/songquanpeng/chatkit/common/helper"
)

// PanicRecover turns a handler panic into a 500 carrying the request id.
func PanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				gmw.GetLogger(c).Error("panic detected",
					zap.Any("panic", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("model", c.GetString(ctxkey.RequestModel)))
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"message": helper.MessageWithRequestId(fmt.Sprintf("Panic detected, error: %v", err),
							c.GetString(helper.RequestIdKey)),
						"type": "chatkit_panic",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
