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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch CI images

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run executes the CLI and returns the process exit code.
func Run(args []string, out, errOut io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: out, errOut: errOut}
	defer a.close()

	err := NewRootCmd(a, args).ExecuteContext(ctx)
	if err == nil {
		return model.ExitOK
	}

	// Errors raised before any command ran are usage errors (unknown
	// command, bad flag).
	if !a.started && !isClassified(err) {
		err = fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	code := model.ExitCode(err)
	if a.logger != nil {
		a.logger.Error("scangate failed", "error", err, "exit_code", code)
	} else {
		slog.New(slog.NewTextHandler(errOut, nil)).Error("scangate failed", "error", err, "exit_code", code)
	}
	return code
}

func isClassified(err error) bool {
	for _, target := range []error{
		model.ErrConfiguration, model.ErrAuthentication, model.ErrConnectivity,
		model.ErrScanAborted, model.ErrScanFailed, model.ErrNonCompliant, model.ErrThresholdExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
