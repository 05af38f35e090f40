// Command colpipe runs one column of a tab-separated stream through a filter
// command and writes the recombined lines to stdout.
//
//	colpipe [flags] <column-index> <command> [args...]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
