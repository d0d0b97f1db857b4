// Package graceful drains in-flight requests and background work on shutdown.
package graceful

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/logger"
)

var (
	inFlightRequests atomic.Int64
	draining         atomic.Bool

	wg sync.WaitGroup
)

// BeginRequest increments the in-flight request counter and returns a function
// to decrement it.
func BeginRequest() func() {
	inFlightRequests.Add(1)
	return func() {
		inFlightRequests.Add(-1)
	}
}

// InFlight returns the number of requests being served.
func InFlight() int64 { return inFlightRequests.Load() }

// GoCritical runs fn in a tracked goroutine that Drain waits for.
func GoCritical(ctx context.Context, name string, fn func(context.Context)) {
	wg.Go(func() {
		start := time.Now()
		logger.Logger.Debug("critical task start", zap.String("name", name))
		fn(ctx)
		logger.Logger.Debug("critical task done", zap.String("name", name), zap.Duration("elapsed", time.Since(start)))
	})
}

// Drain waits for tracked tasks and in-flight requests, bounded by ctx.
func Drain(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	tasksDone := false
	for {
		if tasksDone && InFlight() == 0 {
			logger.Logger.Info("graceful drain complete")
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Logger.Error("graceful drain timeout",
				zap.Bool("tasks_done", tasksDone),
				zap.Int64("in_flight_requests", InFlight()))
			return ctx.Err()
		case <-done:
			tasksDone = true
			done = nil
		case <-ticker.C:
			logger.Logger.Debug("draining...", zap.Int64("in_flight_requests", InFlight()))
		}
	}
}

// SetDraining flips the draining flag to true.
func SetDraining() { draining.Store(true) }

// IsDraining returns whether the server is currently draining.
func IsDraining() bool { return draining.Load() }

// GinRequestTracker counts requests for Drain and refuses new ones while draining.
func GinRequestTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsDraining() {
			c.Header("Connection", "close")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{"message": "server is shutting down", "type": "unavailable"},
			})
			return
		}

		end := BeginRequest()
		defer end()
		c.Next()
	}
}
