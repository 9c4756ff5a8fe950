// Package testutil provides testing utilities for strata
package testutil

import (
	"context"
	"testing"
	"time"

	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/memory"
)

// TestLogger creates a test logger that writes to the test output and
// installs it as the global logger until the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	previous := logger.Get()
	log := zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
	logger.Set(log)
	t.Cleanup(func() { logger.Set(previous) })
	return log
}

// TrackAllocations makes a checked arrow-go allocator the default for the
// rest of the test and fails the test if any bytes are still allocated once
// the test and its other cleanups have finished. Tests using it must not run
// in parallel.
func TrackAllocations(t *testing.T) *arrowmem.CheckedAllocator {
	t.Helper()
	checked := arrowmem.NewCheckedAllocator(arrowmem.NewGoAllocator())
	previous := memory.DefaultAllocator()
	memory.SetDefaultAllocator(memory.NewArrowAllocator(checked))
	t.Cleanup(func() {
		memory.SetDefaultAllocator(previous)
		checked.AssertSize(t, 0)
	})
	return checked
}

// TestContext creates a test context with a 30-second timeout that is
// cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
