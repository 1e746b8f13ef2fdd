package extract

import (
	"context"
	"fmt"
	"iter"

	"github.com/tphakala/rqm-etl/internal/decode"
	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// Detection-rate result layouts. The percentage layout carries values already
// computed by the query; the count layout carries a (matches, known outcomes)
// pair per channel and the percentage is computed here.
const (
	detectionChannels          = 5
	detectionPercentageColumns = 2 + detectionChannels
	detectionCountColumns      = 2 + 2*detectionChannels
)

// DetectionRateExtractor runs the detection-rate query.
type DetectionRateExtractor struct {
	Query string
}

// Records returns the tenant's detection rates, one per data source. A channel
// without known-outcome samples has a nil percentage.
func (e *DetectionRateExtractor) Records(ctx context.Context, q upstream.Querier) iter.Seq2[model.DetectionRateRecord, error] {
	return records(ctx, q, "detection_rate", e.Query, map[int]rowDecoder[model.DetectionRateRecord]{
		detectionPercentageColumns: decodeDetectionPercentages,
		detectionCountColumns:      decodeDetectionCounts,
	})
}

func decodeDetectionHeader(columns []string, cells []any) (model.DetectionRateRecord, error) {
	var rec model.DetectionRateRecord
	var err error

	if rec.DSName, err = decode.Text(cells[0]); err != nil {
		return rec, columnError(columns, 0, err)
	}
	if rec.DSType, err = decode.Text(cells[1]); err != nil {
		return rec, columnError(columns, 1, err)
	}
	return rec, nil
}

func channels(rec *model.DetectionRateRecord) [detectionChannels]**float64 {
	return [detectionChannels]**float64{&rec.PdP, &rec.PdS, &rec.PdM, &rec.PdPS, &rec.PdPM}
}

func decodeDetectionPercentages(columns []string, cells []any) (model.DetectionRateRecord, error) {
	rec, err := decodeDetectionHeader(columns, cells)
	if err != nil {
		return model.DetectionRateRecord{}, err
	}

	for i, ch := range channels(&rec) {
		if *ch, err = decode.Percentage(cells[i+2]); err != nil {
			return model.DetectionRateRecord{}, columnError(columns, i+2, err)
		}
	}
	return rec, nil
}

func decodeDetectionCounts(columns []string, cells []any) (model.DetectionRateRecord, error) {
	rec, err := decodeDetectionHeader(columns, cells)
	if err != nil {
		return model.DetectionRateRecord{}, err
	}

	for i, ch := range channels(&rec) {
		matchIdx, knownIdx := 2+2*i, 3+2*i

		matches, err := decode.Count(cells[matchIdx])
		if err != nil {
			return model.DetectionRateRecord{}, columnError(columns, matchIdx, err)
		}
		known, err := decode.Count(cells[knownIdx])
		if err != nil {
			return model.DetectionRateRecord{}, columnError(columns, knownIdx, err)
		}
		if matches > known {
			return model.DetectionRateRecord{}, columnError(columns, matchIdx,
				fmt.Errorf("%d matches exceed %d known outcomes", matches, known))
		}

		*ch = decode.Ratio(matches, known)
	}
	return rec, nil
}
