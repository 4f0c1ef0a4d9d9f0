package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostelhub/portal/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	app := &adminApp{logger: logger, open: openDatabase}
	err := newRootCmd(app).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.ErrorContext(ctx, "command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}
