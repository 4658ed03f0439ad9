// Package klog is the kernel's structured-logging facade: a
// github.com/go-logr/logr.Logger backed by go.uber.org/zap, written
// through go-logr/zapr exactly the way
// _examples/jra3-system-agent/cmd/main.go wires its own logger
// (zapLog, _ := zapcore.NewDevelopment(); logger = zapr.NewLogger(zapLog)).
// Kernel-core packages (page/slab/paging/trap/sched) stay logging-free
// and use panic for invariant violations instead, and cmd/kernel writes
// only through console.Sink; klog is for the hosted side (cmd/harness
// and tests) that wants leveled, structured output.
package klog

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr.Logger that writes JSON-encoded records to sink at
// the given minimum level (zapcore.DebugLevel, InfoLevel, ...).
func New(sink io.Writer, level zapcore.Level) logr.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "" // no wall clock available before the RTC driver runs
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		level,
	)
	return zapr.NewLogger(zap.New(core))
}

// Discard returns a logger that drops everything, for paths exercised
// before any sink has been brought up (mirrors logr.Discard() in the
// grounding example's non-verbose branch).
func Discard() logr.Logger { return logr.Discard() }

// global is the package-level default logger; cmd/harness installs one
// at startup.
var global = Discard()

// SetDefault installs l as the package-level default logger.
func SetDefault(l logr.Logger) { global = l }

// Default returns the package-level default logger.
func Default() logr.Logger { return global }
