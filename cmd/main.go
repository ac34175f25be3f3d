package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MimeLyc/srt-line-translator/internal/service"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Interrupted, completed entries are kept in the checkpoint")
		} else {
			service.NewDefaultErrorHandler().Handle(err)
		}
		stop()
		os.Exit(1)
	}
}
