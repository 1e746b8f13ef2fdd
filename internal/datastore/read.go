package datastore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/model"
)

// DateSummary is the number of rows stored for one Job_Date.
type DateSummary struct {
	JobDate           string
	BiasRows          int64
	DetectionRateRows int64

	date  model.ProcessingDate
	valid bool
}

type dateCount struct {
	JobDate string `gorm:"column:Job_Date"`
	Count   int64  `gorm:"column:row_count"`
}

// Summary returns row counts per Job_Date across both tables, oldest first.
// Job_Date values that are not dd/mm/yyyy sort after all valid dates.
func (s *Store) Summary(ctx context.Context) ([]DateSummary, error) {
	byDate := make(map[string]*DateSummary)

	for _, table := range []string{BiasTable, DetectionRateTable} {
		var counts []dateCount
		err := s.db.WithContext(ctx).
			Table(table).
			Select("Job_Date, COUNT(*) AS row_count").
			Group("Job_Date").
			Scan(&counts).Error
		if err != nil {
			return nil, dbError(err, errors.CategoryQuery, "summary", "table", table)
		}

		for _, c := range counts {
			sum, ok := byDate[c.JobDate]
			if !ok {
				sum = &DateSummary{JobDate: c.JobDate}
				if d, err := model.ParseProcessingDate(c.JobDate); err == nil && !strings.EqualFold(c.JobDate, model.TodayKeyword) {
					sum.date, sum.valid = d, true
				}
				byDate[c.JobDate] = sum
			}
			if table == BiasTable {
				sum.BiasRows = c.Count
			} else {
				sum.DetectionRateRows = c.Count
			}
		}
	}

	out := make([]DateSummary, 0, len(byDate))
	for _, sum := range byDate {
		out = append(out, *sum)
	}
	slices.SortFunc(out, compareSummaries)
	return out, nil
}

func compareSummaries(a, b DateSummary) int {
	switch {
	case a.valid && !b.valid:
		return -1
	case !a.valid && b.valid:
		return 1
	case a.valid:
		if c := a.date.Time().Compare(b.date.Time()); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.JobDate, b.JobDate)
}

// Biases returns the bias rows stored for date in insertion order.
func (s *Store) Biases(ctx context.Context, date model.ProcessingDate) ([]model.BiasRecord, error) {
	var rows []BiasRow
	err := s.db.WithContext(ctx).
		Where("Job_Date = ?", date.String()).
		Order("rowid").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, errors.CategoryQuery, "read", "table", BiasTable)
	}

	out := make([]model.BiasRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out, nil
}

// DetectionRates returns the detection-rate rows stored for date in insertion order.
func (s *Store) DetectionRates(ctx context.Context, date model.ProcessingDate) ([]model.DetectionRateRecord, error) {
	var rows []DetectionRateRow
	err := s.db.WithContext(ctx).
		Where("Job_Date = ?", date.String()).
		Order("rowid").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, errors.CategoryQuery, "read", "table", DetectionRateTable)
	}

	out := make([]model.DetectionRateRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out, nil
}
