// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"

	"spectrum/cmd"
	applog "spectrum/internal/log"
	"spectrum/pkg/build"
)

// main is the entry point for the spectrum analyser.
//
// 1. Startup: load build information, parse the command line and configuration.
// 2. Session: the engine loop, network publishers and terminal UI run
//    concurrently until the user quits, the session finishes or a signal arrives.
// 3. Shutdown: devices are stopped, transports closed and PortAudio terminated
//    by the command that opened them.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("%v", err)
	}

	if err := cmd.Execute(context.Background(), os.Args[1:]); err != nil {
		applog.Fatalf("%v", err)
	}
}
