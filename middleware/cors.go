package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/helper"
)

// CORS lets browser clients call the API from any origin.
func CORS() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", helper.RequestIdKey}
	config.ExposeHeaders = []string{helper.RequestIdKey, TraceIdHeader}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}
