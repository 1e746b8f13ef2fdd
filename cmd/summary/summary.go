// Package summary implements the local store summary command.
package summary

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/rqm-etl/internal/datastore"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/runtime"
)

// Command creates the summary command.
func Command(rt *runtime.Context) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show row counts per processing date in the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := language.Parse(locale)
			if err != nil {
				return errors.New(err).
					Component("cmd").
					Category(errors.CategoryValidation).
					Context("locale", locale).
					Build()
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
			rows, err := store.Summary(ctx)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), lang, store.Path(), rows)
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "en", "Language used to format numbers")

	return cmd
}

func printSummary(w io.Writer, lang language.Tag, path string, rows []datastore.DateSummary) error {
	p := message.NewPrinter(lang)

	if len(rows) == 0 {
		_, err := p.Fprintf(w, "%s is empty\n", path)
		return err
	}

	if _, err := p.Fprintf(w, "%-12s %12s %16s\n", "Job_Date", "biases", "detection_rates"); err != nil {
		return err
	}
	var biases, rates int64
	for _, r := range rows {
		if _, err := p.Fprintf(w, "%-12s %12d %16d\n", r.JobDate, r.BiasRows, r.DetectionRateRows); err != nil {
			return err
		}
		biases += r.BiasRows
		rates += r.DetectionRateRows
	}
	_, err := p.Fprintf(w, "%-12s %12d %16d\n", "total", biases, rates)
	return err
}
