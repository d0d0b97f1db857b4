package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/Laisky/zap/zapcore"

	"github.com/songquanpeng/chatkit/common/config"
)

var (
	Logger       glog.Logger
	setupLogOnce sync.Once
	initLogOnce  sync.Once
)

// init initializes the logger automatically when the package is imported
func init() {
	initLogger()
}

func initLogger() {
	initLogOnce.Do(func() {
		var err error
		level := glog.LevelInfo
		if config.DebugEnabled {
			level = glog.LevelDebug
		}

		Logger, err = glog.NewConsoleWithName("chatkit", level)
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// SetupLogger mirrors log output into config.LogDir when it is configured.
func SetupLogger() {
	setupLogOnce.Do(func() {
		if config.LogDir == "" {
			return
		}

		logPath := LogFilePath(config.LogDir, config.OnlyOneLogFile, time.Now())
		fd, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			Logger.Error("failed to open log file", zap.String("path", logPath), zap.Error(err))
			return
		}

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(fd),
			zap.DebugLevel,
		)
		Logger = Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
		Logger.Info("log file enabled", zap.String("path", logPath))
	})
}

// LogFilePath returns the file logs are written to for the given day.
func LogFilePath(dir string, single bool, now time.Time) string {
	if single {
		return filepath.Join(dir, "chatkit.log")
	}
	return filepath.Join(dir, fmt.Sprintf("chatkit-%s.log", now.Format("20060102")))
}
