// Package run implements the ETL job command.
package run

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/tphakala/rqm-etl/internal/conf"
	"github.com/tphakala/rqm-etl/internal/datastore"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/notification"
	"github.com/tphakala/rqm-etl/internal/observability"
	"github.com/tphakala/rqm-etl/internal/pipeline"
	"github.com/tphakala/rqm-etl/internal/runtime"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// publishTimeout bounds the pushgateway push and the notification together
const publishTimeout = 30 * time.Second

// ErrTenantsFailed is returned in strict mode when any tenant failed.
var ErrTenantsFailed = errors.NewStd("one or more tenants failed")

// Command creates the run command.
func Command(rt *runtime.Context) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract metrics from every tenant into the local store",
		Long: "Discovers tenant databases, runs the bias and detection rate queries against " +
			"each of them and appends the results to the local SQLite store tagged with the " +
			"processing date.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := language.Parse(locale)
			if err != nil {
				return errors.New(err).
					Component("cmd").
					Category(errors.CategoryValidation).
					Context("locale", locale).
					Build()
			}
			return execute(cmd.Context(), rt, cmd.OutOrStdout(), lang)
		},
	}

	if err := setupFlags(cmd, &locale); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the run command.
func setupFlags(cmd *cobra.Command, locale *string) error {
	cmd.Flags().String("date", "", "Processing date as dd/mm/yyyy, or \"today\"")
	cmd.Flags().Int("concurrency", 1, "Number of tenants processed at once")
	cmd.Flags().Duration("tenant-timeout", pipeline.DefaultTenantTimeout, "Deadline for one tenant")
	cmd.Flags().Bool("strict", false, "Exit with status 2 when any tenant fails")
	cmd.Flags().String("report", "", "Write the run report as YAML to this file")
	cmd.Flags().StringVar(locale, "locale", "en", "Language used to format numbers in the summary")

	bindings := map[string]string{
		"job.date":          "date",
		"job.concurrency":   "concurrency",
		"job.tenanttimeout": "tenant-timeout",
		"job.strict":        "strict",
		"output.report":     "report",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func execute(ctx context.Context, rt *runtime.Context, out io.Writer, lang language.Tag) error {
	settings := rt.Settings
	log := rt.Logger("etl")

	date, err := settings.ProcessingDate()
	if err != nil {
		return err
	}
	cfg, err := pipelineConfig(settings)
	if err != nil {
		return err
	}

	store, err := datastore.Open(ctx, settings.Output.SQLite.Path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close local store", logger.Error(err))
		}
	}()

	src, err := upstream.Open(ctx, settings.UpstreamConfig(cfg.Concurrency+1), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close upstream pool", logger.Error(err))
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	driver := pipeline.New(pipeline.FromUpstream(src), store, model.NewJobContext(date), cfg,
		pipeline.WithLogger(log),
		pipeline.WithRecorder(metrics.ETL))

	report, runErr := driver.Run(ctx)
	if report == nil {
		return runErr
	}

	if err := report.Print(out, lang); err != nil {
		log.Warn("failed to print run summary", logger.Error(err))
	}
	if path := settings.Output.Report; path != "" {
		if err := report.WriteYAML(path); err != nil {
			log.Error("failed to write run report", logger.Error(err))
		}
	}

	failed := len(report.Failed()) > 0 || runErr != nil
	publish(ctx, rt, metrics, report.Summary(), failed)

	if runErr != nil {
		return runErr
	}
	if failed && settings.Job.Strict {
		return fmt.Errorf("%d of %d tenants: %w", len(report.Failed()), len(report.Outcomes), ErrTenantsFailed)
	}
	return nil
}

func pipelineConfig(settings *conf.Settings) (pipeline.Config, error) {
	biasQuery, err := settings.Queries.BiasQuery()
	if err != nil {
		return pipeline.Config{}, err
	}
	rateQuery, err := settings.Queries.DetectionRateQuery()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Concurrency:        settings.Job.Concurrency,
		TenantTimeout:      settings.Job.TenantTimeout,
		BiasQuery:          biasQuery,
		DetectionRateQuery: rateQuery,
	}, nil
}

// publish pushes run metrics and sends the run notification. Both are best
// effort and still happen after an interrupt.
func publish(ctx context.Context, rt *runtime.Context, metrics *observability.Metrics, summary string, failed bool) {
	settings := rt.Settings
	log := rt.Logger("etl")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if pg := settings.Metrics.Pushgateway; pg.Enabled {
		if err := metrics.Push(ctx, pg.URL, pg.Job, rt.Build.SystemID()); err != nil {
			log.Warn("failed to push run metrics", logger.Error(err))
			errors.Report(err)
		}
	}

	if nc := settings.Notification; nc.Enabled {
		notifier, err := notification.New(notification.Config{
			URLs:          nc.URLs,
			Title:         nc.Title,
			OnlyOnFailure: nc.OnlyOnFailure,
		})
		if err != nil {
			log.Warn("notification disabled", logger.Error(err))
			return
		}
		sent, err := notifier.NotifyRun(ctx, summary, failed)
		switch {
		case err != nil:
			log.Warn("failed to send run notification", logger.Error(err))
			errors.Report(err)
		case sent:
			log.Debug("run notification sent")
		}
	}
}
