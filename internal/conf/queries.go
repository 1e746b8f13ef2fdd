// conf/queries.go embedded analytic queries
package conf

import (
	_ "embed"
	"os"
	"strings"

	"github.com/tphakala/rqm-etl/internal/errors"
)

// Detection-rate layouts of the embedded queries
const (
	LayoutPercentages = "percentages"
	LayoutCounts      = "counts"
)

var (
	//go:embed queries/bias.sql
	defaultBiasQuery string

	//go:embed queries/detection_rate.sql
	defaultDetectionRateQuery string

	//go:embed queries/detection_rate_counts.sql
	countsDetectionRateQuery string
)

// QuerySettings selects the query texts run against every tenant. Inline
// text wins over a file, and a file wins over the embedded default.
type QuerySettings struct {
	Bias                string // inline bias query
	BiasFile            string // path to a bias query file
	DetectionRate       string // inline detection-rate query
	DetectionRateFile   string // path to a detection-rate query file
	DetectionRateLayout string // embedded default to use: "percentages" or "counts"
}

// BiasQuery returns the bias query text.
func (q *QuerySettings) BiasQuery() (string, error) {
	return resolveQuery(q.Bias, q.BiasFile, defaultBiasQuery)
}

// DetectionRateQuery returns the detection-rate query text.
func (q *QuerySettings) DetectionRateQuery() (string, error) {
	fallback := defaultDetectionRateQuery
	if strings.EqualFold(q.DetectionRateLayout, LayoutCounts) {
		fallback = countsDetectionRateQuery
	}
	return resolveQuery(q.DetectionRate, q.DetectionRateFile, fallback)
}

func resolveQuery(inline, file, fallback string) (string, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return s, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read_query_file").
				Context("path", file).
				Build()
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			return s, nil
		}
		return "", errors.Newf("query file %s is empty", file).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("path", file).
			Build()
	}
	return strings.TrimSpace(fallback), nil
}
