// Package shutdown stops long-running servers when the process is signalled.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Graceful blocks until one of signals arrives or parent is done, then
// gives s at most timeout to stop.
func Graceful(parent context.Context, signals []os.Signal, s Stoppable, timeout time.Duration, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	sigCtx, stop := signal.NotifyContext(parent, signals...)
	defer stop()

	<-sigCtx.Done()
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown completed with error", zap.Error(err))
		return
	}
	log.Info("graceful shutdown completed")
}
