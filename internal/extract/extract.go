// Package extract runs the per-tenant metric queries and turns their result
// sets into typed records.
//
// Each extractor returns a lazy, single-use sequence. The query executes when
// iteration starts; decode failures are yielded as decode-category errors for
// the affected row and iteration continues, while query and cursor failures
// are yielded once and end the sequence.
package extract

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// ErrConsumed is yielded when a sequence is iterated a second time.
var ErrConsumed = errors.NewStd("record sequence already consumed")

// rowDecoder converts one row of raw cells into a record.
type rowDecoder[T any] func(columns []string, cells []any) (T, error)

// records is the shared cursor loop behind every extractor. layouts maps a
// result-set column count to the decoder for that shape.
func records[T any](ctx context.Context, q upstream.Querier, kind, query string, layouts map[int]rowDecoder[T]) iter.Seq2[T, error] {
	var used atomic.Bool

	return func(yield func(T, error) bool) {
		var zero T

		if used.Swap(true) {
			yield(zero, ErrConsumed)
			return
		}

		rows, err := q.Query(ctx, query)
		if err != nil {
			yield(zero, queryError(err, kind, "execute"))
			return
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			yield(zero, queryError(err, kind, "columns"))
			return
		}

		decodeRow, ok := layouts[len(columns)]
		if !ok {
			yield(zero, queryError(fmt.Errorf("%s query returned %d columns, want one of %v",
				kind, len(columns), layoutSizes(layouts)), kind, "columns"))
			return
		}

		cells := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}

		row := 0
		for rows.Next() {
			row++
			clear(cells)

			if err := rows.Scan(dest...); err != nil {
				yield(zero, queryError(err, kind, "scan"))
				return
			}

			rec, err := decodeRow(columns, cells)
			if err != nil {
				if !yield(zero, rowError(err, kind, row)) {
					return
				}
				continue
			}

			if !yield(rec, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, queryError(err, kind, "iterate"))
		}
	}
}

func queryError(err error, kind, stage string) error {
	category := errors.CategoryQuery
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
	case errors.IsCategory(err, errors.CategoryTimeout), errors.IsCategory(err, errors.CategoryCancellation):
		category = errors.CategoryOf(err)
	}

	return errors.New(fmt.Errorf("%s query: %w", kind, err)).
		Component("extract").
		Category(category).
		Context("extractor", kind).
		Context("stage", stage).
		Build()
}

func rowError(err error, kind string, row int) error {
	return errors.New(fmt.Errorf("%s row %d: %w", kind, row, err)).
		Component("extract").
		Category(errors.CategoryDecode).
		Context("extractor", kind).
		Context("row", row).
		Build()
}

// columnError names the offending column in a decode failure.
func columnError(columns []string, i int, err error) error {
	name := fmt.Sprintf("#%d", i+1)
	if i < len(columns) && columns[i] != "" {
		name = columns[i]
	}
	return fmt.Errorf("column %s: %w", name, err)
}

func layoutSizes[T any](layouts map[int]rowDecoder[T]) []int {
	return slices.Sorted(maps.Keys(layouts))
}
