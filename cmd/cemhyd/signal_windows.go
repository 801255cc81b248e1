//go:build windows

package main

import "os"

// shutdownSignals stop a run gracefully after the current cycle.
// Windows only delivers os.Interrupt.
var shutdownSignals = []os.Signal{os.Interrupt}
