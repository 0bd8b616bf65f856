package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MicroFrontend-Portal/pkg/logger"
)

// main 是门户命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		logger.L().Error("mfe 运行失败", "error", err)
		os.Exit(1)
	}
}
