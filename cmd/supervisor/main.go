package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main 是 A2A Supervisor 的命令行入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
