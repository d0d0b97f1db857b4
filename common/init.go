package common

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/zap"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/logger"
)

// Version is overridden at build time with -ldflags.
var Version = "v0.0.0"

// StartTime is the unix second the process started.
var StartTime = time.Now().Unix()

var (
	Port         = flag.String("port", "", "the listening port, overrides PORT")
	PrintVersion = flag.Bool("version", false, "print version and exit")
	LogDir       = flag.String("log-dir", "", "specify the log directory, overrides LOG_DIR")
)

// Init parses flags and prepares the log directory.
func Init() {
	flag.Parse()

	if *PrintVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if *Port != "" {
		config.ServerPort = *Port
	}

	dir := config.LogDir
	if *LogDir != "" {
		dir = *LogDir
	}
	if dir == "" {
		return
	}

	expanded := expandLogDirPath(dir)
	lg := logger.Logger.With(zap.String("log_dir", expanded))
	expanded, err := filepath.Abs(expanded)
	if err != nil {
		lg.Fatal("failed to get absolute log dir", zap.Error(err))
	}
	if err = os.MkdirAll(expanded, 0o755); err != nil {
		lg.Fatal("failed to create log dir", zap.Error(err))
	}

	lg.Info("set log dir", zap.String("log_dir", expanded))
	config.LogDir = expanded
}
