package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "0.1.0"

func main() {
	LOG_LEVEL := zapcore.InfoLevel

	if err := logger.InitLogger(LOG_LEVEL); err != nil {
		panic(err)
	}

	defer logger.Sync() // Make sure that the buffered is flushed.

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		logger.Error("orpheus failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}
