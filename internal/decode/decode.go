// Package decode converts loosely typed result cells into typed values.
//
// The upstream driver may deliver a numeric column as nil, raw bytes, a string,
// or a native integer or float depending on column type and protocol. Anything
// outside that closed set is a decode error, as is text that is not valid UTF-8
// or does not parse as a finite base-10 number.
package decode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/model"
)

const (
	precision = 1e5

	minPercentage = 0.0
	maxPercentage = 100.0
)

// decodeError builds a row-level decode error for a cell.
func decodeError(err error, value any) error {
	return errors.New(err).
		Component("decode").
		Category(errors.CategoryDecode).
		Context("go_type", fmt.Sprintf("%T", value)).
		Build()
}

// OptionalFloat decodes a numeric cell. A nil cell yields (nil, nil).
func OptionalFloat(value any) (*float64, error) {
	if value == nil {
		return nil, nil
	}
	f, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FloatOrSentinel decodes a numeric cell, substituting model.MissingValue for nil,
// and rounds the result to 5 decimal places.
func FloatOrSentinel(value any) (float64, error) {
	if value == nil {
		return model.MissingValue, nil
	}
	f, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	return Round5(f), nil
}

// Percentage decodes an optional percentage and rejects values outside [0,100].
func Percentage(value any) (*float64, error) {
	f, err := OptionalFloat(value)
	if err != nil || f == nil {
		return f, err
	}
	if *f < minPercentage || *f > maxPercentage {
		return nil, decodeError(fmt.Errorf("percentage %v outside [0,100]", *f), value)
	}
	return f, nil
}

// Count decodes a non-negative integer count cell. A nil cell counts as zero.
func Count(value any) (int64, error) {
	if value == nil {
		return 0, nil
	}
	f, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, decodeError(fmt.Errorf("count %v is not a non-negative integer", f), value)
	}
	return int64(f), nil
}

// Ratio returns matches/known*100, or nil when known is zero.
func Ratio(matches, known int64) *float64 {
	if known == 0 {
		return nil
	}
	r := float64(matches) / float64(known) * 100
	return &r
}

// Text decodes a label cell. nil yields "", numbers are formatted in base 10.
func Text(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		if !utf8.ValidString(v) {
			return "", decodeError(fmt.Errorf("text is not valid UTF-8"), value)
		}
		return v, nil
	case []byte:
		if !utf8.Valid(v) {
			return "", decodeError(fmt.Errorf("text is not valid UTF-8"), value)
		}
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	default:
		return "", decodeError(fmt.Errorf("unsupported cell type %T", value), value)
	}
}

// Round5 rounds f to 5 decimal places.
func Round5(f float64) float64 {
	return math.Round(f*precision) / precision
}

func toFloat(value any) (float64, error) {
	var f float64

	switch v := value.(type) {
	case []byte:
		if !utf8.Valid(v) {
			return 0, decodeError(fmt.Errorf("numeric text is not valid UTF-8"), value)
		}
		return parseFloat(string(v), value)
	case string:
		if !utf8.ValidString(v) {
			return 0, decodeError(fmt.Errorf("numeric text is not valid UTF-8"), value)
		}
		return parseFloat(v, value)
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case int:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return 0, decodeError(fmt.Errorf("unsupported cell type %T", value), value)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, decodeError(fmt.Errorf("non-finite value %v", f), value)
	}
	return f, nil
}

func parseFloat(s string, value any) (float64, error) {
	// ParseFloat also accepts hex mantissas and digit separators
	if strings.ContainsAny(s, "xX_") {
		return 0, decodeError(fmt.Errorf("parse %q as number: not base 10", s), value)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, decodeError(fmt.Errorf("parse %q as number: %w", s, err), value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, decodeError(fmt.Errorf("non-finite value %q", s), value)
	}
	return f, nil
}
