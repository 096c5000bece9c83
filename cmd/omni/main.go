package main

import (
	"errors"
	"fmt"
	"os"

	omnierrors "github.com/omnicli/omni/internal/errors"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const outputJSON = "json"

func main() {
	os.Exit(run())
}

func run() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, omnierrors.NewFormatter(os.Stderr, false).Format(err))
	return exitCode(err)
}

// exitCode maps a returned error to the process exit status documented
// for the CLI: configuration problems, trust refusals, and
// cancellation each get their own code so scripts can branch on them
// without scraping stderr.
func exitCode(err error) int {
	var trustErr *omnierrors.TrustError
	if errors.As(err, &trustErr) {
		return 3
	}
	var cancelErr *omnierrors.CancelError
	if errors.As(err, &cancelErr) {
		return 4
	}
	var configErr *omnierrors.ConfigError
	if errors.As(err, &configErr) {
		return 2
	}
	return 1
}
