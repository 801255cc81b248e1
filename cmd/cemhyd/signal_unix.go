//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop a run gracefully after the current cycle.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
