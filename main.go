// ./main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/pageload-cli/cmd"
	"github.com/xkilldash9x/pageload-cli/internal/observability"
)

// Swapped out in tests.
var (
	osExit   = os.Exit
	panicOut = io.Writer(os.Stderr)
)

// main is the entry point for pageload-measure. SIGINT and SIGTERM cancel the
// measurement; the browser is still torn down before the process exits.
func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	osExit(code)
}

// handlePanic reports an unexpected panic as a harness malfunction. Deferred session
// teardown has already run by the time the panic reaches main.
func handlePanic() {
	if r := recover(); r != nil {
		observability.Sync()
		fmt.Fprintf(panicOut, "panic: %v\n\n%s\n", r, debug.Stack())
		osExit(cmd.ExitMalfunction)
	}
}
