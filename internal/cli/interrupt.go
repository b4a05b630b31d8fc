package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a context on SIGINT or SIGTERM and tells the user
// what happened to the work in flight.
type InterruptHandler struct {
	writer      io.Writer
	signals     chan os.Signal
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler that reports to writer.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{writer: writer, signals: make(chan os.Signal, 1)}
}

// HandleInterrupts returns a context canceled on the first interrupt.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(h.signals)
		select {
		case <-h.signals:
		case <-ctx.Done():
			return
		}
		h.mu.Lock()
		if !h.interrupted {
			h.interrupted = true
			h.showInterruptMessage()
		}
		h.mu.Unlock()
		cancel()
	}()

	return ctx
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n" + FormatWarning("Interrupted!") +
		"\n" + FormatInfo("Imports are saved in one transaction, so nothing partial was written.") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal arrived.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
