// Command wite2 audits, queries and repairs WiTE2 order-of-battle scenario
// files.
//
// Exit status is 0 on success, 2 when --strict is set and an audit found
// issues, and 1 when the operation could not run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/wite2/internal/core"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitFindings = 2
)

// errFindings is returned by audits under --strict when issues were found.
var errFindings = errors.New("audit found issues")

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line in args and returns the exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout, errOut: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFindings
	}
	slog.Debug("command failed", "error", err)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(stderr, core.FormatUserError(err))
	}
	return exitFailure
}
