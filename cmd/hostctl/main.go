// Command hostctl is the CLI entrypoint: it wires cobra commands to the
// internal packages (createpipeline, listing, sync, config, telemetry,
// notify) the way tools/si's root_commands.go wired its own lazy command
// map, generalized to a real command tree.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "hostctl: panic: %v\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()
	Execute()
}
