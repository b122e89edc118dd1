// Package signal turns SIGINT and SIGTERM into context cancellation for the
// taskclock server.
//
// The first signal starts a graceful shutdown by cancelling the handler's
// context. A second signal closes Forced, telling the caller to stop waiting
// for in-flight requests and countdowns.
//
// Import rules:
//   - CAN import: std lib, zerolog
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// Handler cancels its context on the first SIGINT or SIGTERM.
type Handler struct {
	ctx         context.Context //nolint:containedctx // handler manages context lifecycle
	cancel      context.CancelFunc
	logger      zerolog.Logger
	interrupted chan struct{}
	forced      chan struct{}
	done        chan struct{}
	sigChan     chan os.Signal

	mu       sync.Mutex
	received os.Signal
	count    int
	stopOnce sync.Once
}

// NewHandler creates a signal handler that listens for SIGINT and SIGTERM.
//
//	h := signal.NewHandler(ctx, logger)
//	defer h.Stop()
//	ctx = h.Context()
func NewHandler(parent context.Context, logger zerolog.Logger) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With().Str("component", "signal").Logger(),
		interrupted: make(chan struct{}),
		forced:      make(chan struct{}),
		done:        make(chan struct{}),
		// Buffered so signal.Notify never drops a signal while we are busy.
		sigChan: make(chan os.Signal, 2),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the context cancelled by the first signal.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted closes when the first signal arrives.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Forced closes when a second signal arrives during shutdown.
func (h *Handler) Forced() <-chan struct{} {
	return h.forced
}

// Received returns the first signal received, or nil.
func (h *Handler) Received() os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.received
}

// Stop stops listening for signals and cancels the context.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal records sig. The first call cancels the context, the second
// closes Forced, later calls are ignored.
func (h *Handler) handleSignal(sig os.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	switch h.count {
	case 1:
		h.received = sig
		h.logger.Info().Stringer("signal", sig).Msg("shutdown requested")
		h.cancel()
		close(h.interrupted)
	case 2:
		h.logger.Warn().Stringer("signal", sig).Msg("second signal, forcing shutdown")
		close(h.forced)
	}
}

// listen handles signals until Stop is called. It keeps running after the
// context is cancelled so a second signal can still force shutdown.
func (h *Handler) listen() {
	for {
		select {
		case <-h.done:
			return
		case sig := <-h.sigChan:
			h.handleSignal(sig)
		}
	}
}
