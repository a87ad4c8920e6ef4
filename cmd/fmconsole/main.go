// Command fmconsole browses facility management lists from the terminal.
//
// Usage:
//
//	fmconsole tui [resource]        Interactive list screen
//	fmconsole list <resource>       Print one page as a table
//	fmconsole prefetch              Fetch every list and save snapshots
//	fmconsole snapshots             Show saved snapshots
//	fmconsole config                Show or initialise the config file
//	fmconsole devapi                Serve sample lists for development
//
// Settings come from ~/.fmconsole/config.json and FMCONSOLE_* environment
// variables (FMCONSOLE_API_BASE_URL, FMCONSOLE_API_TOKEN, ...).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fmconsole:", err)
		stop()
		os.Exit(1)
	}
}
