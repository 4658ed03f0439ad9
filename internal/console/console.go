// Package console is the freestanding kernel's only logging boundary: a
// single-method Sink the core writes through, the same role
// _examples/iansmith-mazarin/src/go/mazarin/kernel.go's uartPuts/gpuPuts
// play as the only sinks KernelMain ever touches. This package
// deliberately does not implement a real UART/MMIO driver (per
// a deliberate choice to keep this layer thin, the same way the
// device-tree boundary (internal/fdt) stays thin — a real
// bring-up supplies a Sink backed by its own board-specific driver.
package console

import (
	"strings"
	"sync"
)

// Sink is the boundary interface the kernel core writes console output
// through.
type Sink interface {
	WriteString(s string)
}

// NoopSink discards everything written to it.
type NoopSink struct{}

// WriteString implements Sink.
func (NoopSink) WriteString(string) {}

// BufferSink captures everything written to it, for tests and for the
// hosted harness. It also implements io.Writer so it can back
// internal/klog's structured-logging sink.
type BufferSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

// WriteString implements Sink.
func (b *BufferSink) WriteString(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(s)
}

// Write implements io.Writer.
func (b *BufferSink) Write(p []byte) (int, error) {
	b.WriteString(string(p))
	return len(p), nil
}

// String returns everything captured so far.
func (b *BufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
