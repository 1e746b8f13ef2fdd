package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/rqm-etl/cmd"
	"github.com/tphakala/rqm-etl/internal/buildinfo"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/runtime"
)

// Injected at build time with -ldflags "-X main.buildDate=... -X main.version=..."
var (
	buildDate string
	version   string
	systemID  string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := runtime.NewContext(buildinfo.NewContext(version, buildDate, systemID))
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()

	rootCmd := cmd.RootCommand(rt)
	err := rootCmd.ExecuteContext(ctx)
	code := cmd.ExitCode(err)

	switch code {
	case cmd.ExitOK:
	case cmd.ExitTenantFailures:
		rt.Logger("main").Warn("run finished with tenant failures", logger.Error(err))
	default:
		if code == cmd.ExitFatal {
			errors.Report(err)
		}
		rt.Logger("main").Error("run aborted", logger.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return code
}
