package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/model"
)

// Tenant outcome statuses, also used as metric label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// TenantOutcome is the result of processing one tenant. Err is nil on success;
// rows inserted before a failure are still counted.
type TenantOutcome struct {
	Tenant            model.Tenant
	BiasRows          int
	DetectionRateRows int
	DroppedRows       int
	Duration          time.Duration
	Err               error
}

// Status returns StatusSuccess or StatusFailed.
func (o *TenantOutcome) Status() string {
	if o.Err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

type outcomeYAML struct {
	Tenant            string `yaml:"tenant"`
	Status            string `yaml:"status"`
	BiasRows          int    `yaml:"bias_rows"`
	DetectionRateRows int    `yaml:"detection_rate_rows"`
	DroppedRows       int    `yaml:"dropped_rows"`
	Duration          string `yaml:"duration"`
	Category          string `yaml:"category,omitempty"`
	Error             string `yaml:"error,omitempty"`
}

// MarshalYAML renders the outcome with the error flattened to text.
func (o TenantOutcome) MarshalYAML() (any, error) {
	out := outcomeYAML{
		Tenant:            o.Tenant.String(),
		Status:            o.Status(),
		BiasRows:          o.BiasRows,
		DetectionRateRows: o.DetectionRateRows,
		DroppedRows:       o.DroppedRows,
		Duration:          o.Duration.Round(time.Millisecond).String(),
	}
	if o.Err != nil {
		out.Category = string(errors.CategoryOf(o.Err))
		out.Error = o.Err.Error()
	}
	return out, nil
}

// Report summarizes a run. Outcomes are in discovery order.
type Report struct {
	RunID      string               `yaml:"run_id"`
	Date       model.ProcessingDate `yaml:"processing_date"`
	StartedAt  time.Time            `yaml:"started_at"`
	FinishedAt time.Time            `yaml:"finished_at"`
	Outcomes   []TenantOutcome      `yaml:"tenants"`
}

// Failed returns the outcomes that carry an error.
func (r *Report) Failed() []TenantOutcome {
	var failed []TenantOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// BiasRows is the number of bias rows inserted across all tenants.
func (r *Report) BiasRows() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.BiasRows
	}
	return n
}

// DetectionRateRows is the number of detection-rate rows inserted across all tenants.
func (r *Report) DetectionRateRows() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.DetectionRateRows
	}
	return n
}

// DroppedRows is the number of rows discarded by the decoder across all tenants.
func (r *Report) DroppedRows() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.DroppedRows
	}
	return n
}

// Print writes a human-readable summary, with numbers formatted for lang.
func (r *Report) Print(w io.Writer, lang language.Tag) error {
	p := message.NewPrinter(lang)

	if _, err := p.Fprintf(w, "Run %s for %s: %d tenants, %d failed\n",
		r.RunID, r.Date, len(r.Outcomes), len(r.Failed())); err != nil {
		return err
	}
	for _, o := range r.Outcomes {
		var err error
		if o.Err != nil {
			_, err = p.Fprintf(w, "  %-40s FAILED  %v\n", o.Tenant, o.Err)
		} else {
			_, err = p.Fprintf(w, "  %-40s ok      biases=%d detection_rates=%d dropped=%d\n",
				o.Tenant, o.BiasRows, o.DetectionRateRows, o.DroppedRows)
		}
		if err != nil {
			return err
		}
	}
	_, err := p.Fprintf(w, "Inserted %d bias rows and %d detection rate rows in %s\n",
		r.BiasRows(), r.DetectionRateRows(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return err
}

// Summary is a one-paragraph plain text form used for notifications.
func (r *Report) Summary() string {
	msg := fmt.Sprintf("rqm-etl run %s for %s: %d tenants, %d failed, %d bias rows, %d detection rate rows.",
		r.RunID, r.Date, len(r.Outcomes), len(r.Failed()), r.BiasRows(), r.DetectionRateRows())
	for _, o := range r.Failed() {
		msg += fmt.Sprintf("\n%s: %v", o.Tenant, o.Err)
	}
	return msg
}

// WriteYAML writes the report to path.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryGeneric).
			Context("operation", "marshal_report").
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Context("operation", "write_report").
			Context("path", path).
			Build()
	}
	return nil
}
