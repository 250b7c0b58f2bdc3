// pkg/scour_cli/signals.go
//
// Signal handling for in-flight sanitization jobs. First signal requests
// cooperative cancellation (jobs stop at their next pass boundary and are
// journaled as cancelled); a second signal forces exit.

package scour_cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CancelFunc requests cooperative cancellation of ongoing work.
type CancelFunc func()

// SignalHandler converts SIGINT/SIGTERM into cooperative cancellation.
type SignalHandler struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sigChan chan os.Signal

	mu          sync.Mutex
	cancelFuncs []CancelFunc
}

// NewSignalHandler installs the handler and starts listening.
func NewSignalHandler(ctx context.Context) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)

	h := &SignalHandler{
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 2),
	}

	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)
	go h.handleSignals()

	return h
}

// Context returns the cancellable context. Operations should derive from it.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

// OnSignal registers a cancellation hook invoked on the first signal.
// Hooks must return quickly; the actual stop happens at pass boundaries.
func (h *SignalHandler) OnSignal(fn CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelFuncs = append(h.cancelFuncs, fn)
}

func (h *SignalHandler) handleSignals() {
	logger := otelzap.Ctx(h.ctx)

	sig, ok := <-h.sigChan
	if !ok {
		return
	}

	logger.Info("Received signal, requesting cooperative cancellation",
		zap.String("signal", sig.String()))
	fmt.Fprintf(os.Stderr, "\n⚠️  Received %v, cancelling at next pass boundary (interrupt again to force exit)\n", sig)

	h.mu.Lock()
	funcs := make([]CancelFunc, len(h.cancelFuncs))
	copy(funcs, h.cancelFuncs)
	h.mu.Unlock()

	// LIFO, matching registration of outermost work first
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
	h.cancel()

	sig, ok = <-h.sigChan
	if !ok {
		return
	}
	logger.Error("Received second signal, forcing exit", zap.String("signal", sig.String()))
	fmt.Fprintln(os.Stderr, "\n⚠️  Received second interrupt, forcing exit! In-flight passes may be incomplete.")
	os.Exit(130)
}

// Stop disarms the handler. Call once work has finished normally.
func (h *SignalHandler) Stop() {
	signal.Stop(h.sigChan)
	close(h.sigChan)
	h.cancel()
}
