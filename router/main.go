package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/controller"
	"github.com/songquanpeng/chatkit/middleware"
)

func SetRouter(router *gin.Engine) {
	// preflight requests match no route, so CORS has to run on the engine
	router.Use(middleware.CORS())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if config.EnablePrometheusMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	SetApiRouter(router)
}

func SetApiRouter(router *gin.Engine) {
	v1 := router.Group("/v1")
	v1.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		v1.GET("/status", controller.GetStatus)
		v1.GET("/models", controller.ListModels)
		v1.POST("/models/:id/enable", controller.EnableModel)
		v1.POST("/chat", controller.Chat)
		v1.POST("/images", controller.GenerateImages)
		v1.GET("/parsers", controller.ListParsers)
		v1.POST("/parse", controller.Parse)
	}
}
