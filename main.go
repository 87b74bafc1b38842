// SysAdvisor — host resource snapshots with model-backed recommendations.
// Author: vesaa | License: MIT | https://github.com/vesaa/sysadvisor
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/vesaa/sysadvisor/internal/logging"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt) // os.Interrupt = SIGINT; works on all platforms
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// setupLogging installs the process-wide logger once config is known.
func setupLogging(level, format string) {
	logging.SetDefault("sysadvisor", version, level, format)
}
