package extract

import (
	"context"
	"iter"

	"github.com/tphakala/rqm-etl/internal/decode"
	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// biasColumns is the bias result layout: radar name, antenna type and eight
// calibration values.
const biasColumns = 10

// BiasExtractor runs the radar bias query.
type BiasExtractor struct {
	Query string
}

// Records returns the tenant's bias rows. Absent calibration values decode to
// model.MissingValue; every value is rounded to 5 decimal places.
func (e *BiasExtractor) Records(ctx context.Context, q upstream.Querier) iter.Seq2[model.BiasRecord, error] {
	return records(ctx, q, "bias", e.Query, map[int]rowDecoder[model.BiasRecord]{
		biasColumns: decodeBias,
	})
}

func decodeBias(columns []string, cells []any) (model.BiasRecord, error) {
	var rec model.BiasRecord
	var err error

	if rec.RadarName, err = decode.Text(cells[0]); err != nil {
		return rec, columnError(columns, 0, err)
	}
	if rec.AntennaType, err = decode.Text(cells[1]); err != nil {
		return rec, columnError(columns, 1, err)
	}

	values := []*float64{
		&rec.TimeBias,
		&rec.RangeBias,
		&rec.RangeGain,
		&rec.AzimuthBias,
		&rec.RangeNoise,
		&rec.AzimuthNoise,
		&rec.EccValue,
		&rec.EccAngle,
	}
	for i, v := range values {
		if *v, err = decode.FloatOrSentinel(cells[i+2]); err != nil {
			return model.BiasRecord{}, columnError(columns, i+2, err)
		}
	}

	return rec, nil
}
