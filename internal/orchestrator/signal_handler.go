package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// SignalHandler turns SIGINT/SIGTERM into context cancellation
type SignalHandler struct {
	sigChan chan os.Signal
	done    chan struct{}
}

// NewSignalHandler registers for interrupt and terminate signals
func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// HandleSignals cancels the context on the first signal received
func (sh *SignalHandler) HandleSignals(cancel context.CancelFunc) {
	go func() {
		select {
		case sig := <-sh.sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal, aborting run")
			cancel()
		case <-sh.done:
		}
	}()
}

// Stop unregisters the handler
func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
	close(sh.done)
}

// WithShutdownSignals derives a context cancelled by SIGINT/SIGTERM.
// The returned stop function must be called to release the handler.
func WithShutdownSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sh := NewSignalHandler()
	sh.HandleSignals(cancel)
	return ctx, func() {
		sh.Stop()
		cancel()
	}
}
