package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/songquanpeng/chatkit/common"
	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/graceful"
	"github.com/songquanpeng/chatkit/common/logger"
	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	common.Init()
	logger.SetupLogger()
	logger.Logger.Info("chatkit started",
		zap.String("version", common.Version),
		zap.String("region", config.AWSRegion))

	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	} else if !config.DebugEnabled {
		gin.SetMode(gin.ReleaseMode)
	}

	if config.EnablePrometheusMetrics {
		monitor.InitPrometheusMonitoring()
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}
	if config.AutomaticDisableModelEnabled {
		logger.Logger.Info("models with a low success rate will be disabled",
			zap.Int("window", config.MetricQueueSize),
			zap.Float64("threshold", config.MetricSuccessRateThreshold))
	}
	utils.InitTokenEncoder()

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		middleware.PanicRecover(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
		graceful.GinRequestTracker(),
	)
	server.Use(middleware.RequestId())
	server.Use(middleware.TracingMiddleware())
	if config.EnablePrometheusMetrics {
		server.Use(middleware.PrometheusMiddleware())
	}
	router.SetRouter(server)

	srv := &http.Server{
		Addr:              ":" + config.ServerPort,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+config.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutting down")
	graceful.SetDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("server shutdown", zap.Error(err))
	}
	if err := graceful.Drain(shutdownCtx); err != nil {
		logger.Logger.Error("drain", zap.Error(err))
	}
}
