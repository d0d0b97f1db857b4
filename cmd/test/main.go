// Command test sweeps the configured Bedrock models with plain chat, forced
// tool calls and typed output, and prints a pass/fail matrix.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/zap"
	_ "github.com/joho/godotenv/autoload"

	"github.com/songquanpeng/chatkit/common/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg := logger.Logger.Named("regression")
	cfg, err := loadConfig()
	if err != nil {
		lg.Fatal("load config", zap.Error(err))
	}

	rep, err := run(ctx, lg, cfg)
	if err != nil {
		lg.Fatal("regression sweep aborted", zap.Error(err))
	}
	renderReport(os.Stdout, rep)

	if rep.failedCount > 0 {
		lg.Error("regression sweep failed",
			zap.Int("failed", rep.failedCount),
			zap.Int("total", rep.totalRequests))
		os.Exit(1)
	}
}
