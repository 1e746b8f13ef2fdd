// Package seed implements the synthetic data command.
package seed

import (
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/rqm-etl/internal/datastore"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/runtime"
)

// DefaultDays is the number of dates seeded when --days is not given
const DefaultDays = 30

// Command creates the seed command.
func Command(rt *runtime.Context) *cobra.Command {
	var (
		days    int
		endDate string
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the local store with synthetic metrics",
		Long: "Appends synthetic bias and detection rate rows for --days consecutive dates " +
			"ending the day before --end, so dashboards can be built without an upstream server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			end := model.DateOf(time.Now())
			if endDate != "" {
				var err error
				if end, err = model.ParseProcessingDate(endDate); err != nil {
					return errors.New(err).
						Component("cmd").
						Category(errors.CategoryValidation).
						Context("end", endDate).
						Build()
				}
			}

			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(seed, seed))
			}

			ctx := cmd.Context()
			log := rt.Logger("etl")

			store, err := datastore.Open(ctx, rt.Settings.Output.SQLite.Path, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Warn("failed to close local store", logger.Error(err))
				}
			}()

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			stats, err := store.Seed(ctx, end, days, rng)
			if err != nil {
				return err
			}

			log.Info("local store seeded",
				logger.String("path", store.Path()),
				logger.Int("days", stats.Days),
				logger.Int("bias_rows", stats.BiasRows),
				logger.Int("detection_rate_rows", stats.DetectionRateRows))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", DefaultDays, "Number of consecutive dates to generate")
	cmd.Flags().StringVar(&endDate, "end", "", "Generate dates up to the day before this dd/mm/yyyy date (default: today)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible data, 0 picks one")

	return cmd
}
