// Package pipeline sequences an ETL run: discover tenants, extract each one's
// metrics and append them to the local store.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/extract"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

const (
	// DefaultTenantTimeout bounds one tenant's selection, extraction and load.
	DefaultTenantTimeout = 10 * time.Minute

	tableBiases         = "biases"
	tableDetectionRates = "detection_rates"
)

// Config controls how the driver walks tenants.
type Config struct {
	// Concurrency is the number of tenants processed at once; 1 or less is
	// strictly sequential in discovery order.
	Concurrency int
	// TenantTimeout is the per-tenant deadline; zero uses DefaultTenantTimeout.
	TenantTimeout time.Duration

	BiasQuery          string
	DetectionRateQuery string
}

// Recorder receives run metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	TenantCompleted(status, category string, elapsed time.Duration)
	RowsInserted(table string, n int)
	RowsDropped(table string, n int)
	RunCompleted(finished time.Time, tenants, failed int)
}

type nopRecorder struct{}

func (nopRecorder) TenantCompleted(string, string, time.Duration) {}
func (nopRecorder) RowsInserted(string, int)                       {}
func (nopRecorder) RowsDropped(string, int)                        {}
func (nopRecorder) RunCompleted(time.Time, int, int)               {}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// Driver runs one job over every discovered tenant.
type Driver struct {
	source   Source
	store    Store
	job      model.JobContext
	config   Config
	logger   logger.Logger
	recorder Recorder

	bias          *extract.BiasExtractor
	detectionRate *extract.DetectionRateExtractor
}

// New creates a driver for job.
func New(source Source, store Store, job model.JobContext, cfg Config, opts ...Option) *Driver {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.TenantTimeout <= 0 {
		cfg.TenantTimeout = DefaultTenantTimeout
	}

	d := &Driver{
		source:        source,
		store:         store,
		job:           job,
		config:        cfg,
		logger:        logger.NewNopLogger(),
		recorder:      nopRecorder{},
		bias:          &extract.BiasExtractor{Query: cfg.BiasQuery},
		detectionRate: &extract.DetectionRateExtractor{Query: cfg.DetectionRateQuery},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.Module("pipeline").With(
		logger.String("run_id", job.RunID),
		logger.String("processing_date", job.Date.String()))

	return d
}

// Run ensures the store schema, discovers tenants and processes each of them.
// A non-nil error means the run could not start (schema or discovery failed)
// or was cancelled; tenant failures are only recorded in the report.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     d.job.RunID,
		Date:      d.job.Date,
		StartedAt: d.job.StartedAt,
	}

	// SQL logged by the store and upstream adapters carries the run ID
	ctx = logger.WithTraceID(ctx, d.job.RunID)

	if err := d.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	tenants, err := d.source.Discover(ctx)
	if err != nil {
		return nil, err
	}

	d.logger.Info("processing tenants",
		logger.Int("tenants", len(tenants)),
		logger.Int("concurrency", d.config.Concurrency))

	report.Outcomes = make([]TenantOutcome, len(tenants))

	var g errgroup.Group
	g.SetLimit(d.config.Concurrency)
	for i, tenant := range tenants {
		g.Go(func() error {
			if ctx.Err() != nil {
				report.Outcomes[i] = d.skipped(ctx, tenant)
				return nil
			}
			report.Outcomes[i] = d.processTenant(ctx, tenant)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	failed := len(report.Failed())
	d.recorder.RunCompleted(report.FinishedAt, len(tenants), failed)

	d.logger.Info("run finished",
		logger.Int("tenants", len(tenants)),
		logger.Int("failed", failed),
		logger.Int("bias_rows", report.BiasRows()),
		logger.Int("detection_rate_rows", report.DetectionRateRows()),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	if err := ctx.Err(); err != nil {
		return report, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryCancellation).
			Context("completed_tenants", len(tenants)-failed).
			Build()
	}
	return report, nil
}

func (d *Driver) skipped(ctx context.Context, tenant model.Tenant) TenantOutcome {
	outcome := TenantOutcome{
		Tenant: tenant,
		Err: errors.New(context.Cause(ctx)).
			Component("pipeline").
			Category(errors.CategoryCancellation).
			Context("tenant", tenant.String()).
			Build(),
	}
	d.finish(&outcome)
	return outcome
}

// processTenant selects tenant on its own session and runs both extractors.
// Every failure is captured in the returned outcome.
func (d *Driver) processTenant(ctx context.Context, tenant model.Tenant) TenantOutcome {
	outcome := TenantOutcome{Tenant: tenant}
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)
		d.finish(&outcome)
	}()

	ctx, cancel := context.WithTimeout(ctx, d.config.TenantTimeout)
	defer cancel()

	session, err := d.source.OpenSession(ctx, tenant)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Warn("failed to release tenant session",
				logger.String("tenant", tenant.String()),
				logger.Error(err))
		}
	}()

	log := d.logger.With(logger.String("tenant", tenant.String()))

	biasErr := d.loadBiases(ctx, session, log, &outcome)
	rateErr := d.loadDetectionRates(ctx, session, log, &outcome)
	outcome.Err = errors.Join(biasErr, rateErr)

	return outcome
}

func (d *Driver) loadBiases(ctx context.Context, q Session, log logger.Logger, outcome *TenantOutcome) error {
	inserted, dropped := 0, 0
	defer func() {
		outcome.BiasRows += inserted
		outcome.DroppedRows += dropped
		d.recorder.RowsInserted(tableBiases, inserted)
		d.recorder.RowsDropped(tableBiases, dropped)
	}()

	for rec, err := range d.bias.Records(ctx, q) {
		if err != nil {
			if errors.IsCategory(err, errors.CategoryDecode) {
				dropped++
				log.Warn("dropped bias row", logger.Error(err))
				continue
			}
			return err
		}
		if err := d.store.AppendBias(ctx, d.job.Date, &rec); err != nil {
			return err
		}
		inserted++
	}
	return nil
}

func (d *Driver) loadDetectionRates(ctx context.Context, q Session, log logger.Logger, outcome *TenantOutcome) error {
	inserted, dropped := 0, 0
	defer func() {
		outcome.DetectionRateRows += inserted
		outcome.DroppedRows += dropped
		d.recorder.RowsInserted(tableDetectionRates, inserted)
		d.recorder.RowsDropped(tableDetectionRates, dropped)
	}()

	for rec, err := range d.detectionRate.Records(ctx, q) {
		if err != nil {
			if errors.IsCategory(err, errors.CategoryDecode) {
				dropped++
				log.Warn("dropped detection rate row", logger.Error(err))
				continue
			}
			return err
		}
		if err := d.store.AppendDetectionRate(ctx, d.job.Date, &rec); err != nil {
			return err
		}
		inserted++
	}
	return nil
}

// finish emits the per-tenant diagnostic line and metrics.
func (d *Driver) finish(outcome *TenantOutcome) {
	if outcome.Err == nil {
		d.recorder.TenantCompleted(outcome.Status(), "", outcome.Duration)
		d.logger.Info("tenant processed",
			logger.String("tenant", outcome.Tenant.String()),
			logger.Int("bias_rows", outcome.BiasRows),
			logger.Int("detection_rate_rows", outcome.DetectionRateRows),
			logger.Int("dropped_rows", outcome.DroppedRows),
			logger.Duration("elapsed", outcome.Duration))
		return
	}

	category := string(errors.CategoryOf(outcome.Err))
	d.recorder.TenantCompleted(outcome.Status(), category, outcome.Duration)
	d.logger.Error("tenant failed",
		logger.String("tenant", outcome.Tenant.String()),
		logger.String("category", category),
		logger.Error(outcome.Err))
	errors.Report(outcome.Err)
}
