package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/rqm-etl/cmd/run"
	"github.com/tphakala/rqm-etl/cmd/seed"
	"github.com/tphakala/rqm-etl/cmd/summary"
	"github.com/tphakala/rqm-etl/cmd/tenants"
	"github.com/tphakala/rqm-etl/cmd/version"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/runtime"
)

// Process exit codes
const (
	ExitOK             = 0
	ExitFatal          = 1
	ExitTenantFailures = 2
	ExitInterrupted    = 130
)

// RootCommand creates and returns the root command
func RootCommand(rt *runtime.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "rqm-etl",
		Short:         "Collect radar quality metrics from every tenant database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	versionCmd := version.Command(rt)

	rootCmd.AddCommand(
		run.Command(rt),
		tenants.Command(rt),
		summary.Command(rt),
		seed.Command(rt),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return rt.Init(configFile)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ./, ~/.config/rqm-etl, /etc/rqm-etl)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, run.ErrTenantsFailed):
		return ExitTenantFailures
	case errors.IsCategory(err, errors.CategoryCancellation):
		return ExitInterrupted
	default:
		return ExitFatal
	}
}
