// Package tenants implements the tenant listing command.
package tenants

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/runtime"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// Command creates a command that lists the tenant databases a run would process.
func Command(rt *runtime.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List tenant databases matching the tenant pattern",
		Long:  "Connects to the upstream server and prints the databases a run would process, in discovery order. No data is extracted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := rt.Logger("etl")

			src, err := upstream.Open(ctx, rt.Settings.UpstreamConfig(1), log)
			if err != nil {
				return err
			}
			defer func() {
				if err := src.Close(); err != nil {
					log.Warn("failed to close upstream pool", logger.Error(err))
				}
			}()

			tenants, err := src.Discover(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range tenants {
				if _, err := fmt.Fprintln(out, t); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return cmd
}
