package klog_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"vos/internal/klog"
)

func TestNewLoggerWritesJSONToSink(t *testing.T) {
	var buf bytes.Buffer
	log := klog.New(&buf, zapcore.InfoLevel)

	log.Info("page allocator ready", "order", 10)

	out := buf.String()
	assert.Contains(t, out, "page allocator ready")
	assert.Contains(t, out, "\"order\":10")
}

func TestDefaultStartsDiscarded(t *testing.T) {
	assert.False(t, klog.Default().Enabled())
}

func TestSetDefaultInstallsLogger(t *testing.T) {
	var buf bytes.Buffer
	log := klog.New(&buf, zapcore.DebugLevel)
	klog.SetDefault(log)
	t.Cleanup(func() { klog.SetDefault(klog.Discard()) })

	klog.Default().Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
