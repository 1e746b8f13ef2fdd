package datastore

import (
	"context"
	"math/rand/v2"
	"strconv"

	"gorm.io/gorm"

	"github.com/tphakala/rqm-etl/internal/decode"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

var (
	seedRadars       = []string{"Radar A", "Radar B", "Radar C"}
	seedAntennaTypes = []string{"Type 1", "Type 2"}
)

// SeedStats reports how many synthetic rows Seed inserted.
type SeedStats struct {
	Days              int
	BiasRows          int
	DetectionRateRows int
}

// Seed fills the store with synthetic rows for days consecutive dates ending
// the day before end, for dashboard development without an upstream server.
// Every date gets one bias row per radar and antenna type and one detection
// rate row per radar. All rows are written in one transaction.
func (s *Store) Seed(ctx context.Context, end model.ProcessingDate, days int, rng *rand.Rand) (SeedStats, error) {
	if days <= 0 {
		return SeedStats{}, errors.Newf("seed days must be positive, got %d", days).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	stats := SeedStats{Days: days}
	start := end.AddDays(-days)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range days {
			date := start.AddDays(i)

			for _, radar := range seedRadars {
				for _, antenna := range seedAntennaTypes {
					rec := fakeBias(rng, radar, antenna)
					row := newBiasRow(date, &rec)
					if err := tx.Create(&row).Error; err != nil {
						return writeError(err, BiasTable)
					}
					stats.BiasRows++
				}

				rec := fakeDetectionRate(rng, radar)
				row := newDetectionRateRow(date, &rec)
				if err := tx.Create(&row).Error; err != nil {
					return writeError(err, DetectionRateTable)
				}
				stats.DetectionRateRows++
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}

	s.logger.Info("seeded synthetic data",
		logger.String("from", start.String()),
		logger.Int("days", days),
		logger.Int("bias_rows", stats.BiasRows),
		logger.Int("detection_rate_rows", stats.DetectionRateRows))

	return stats, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return decode.Round5(lo + rng.Float64()*(hi-lo))
}

func fakeBias(rng *rand.Rand, radar, antenna string) model.BiasRecord {
	return model.BiasRecord{
		RadarName:   radar,
		AntennaType: antenna,
		TimeBias:    uniform(rng, -1, 1),
		RangeBias:   uniform(rng, -100, 100),
		// stored as (gain - 1) * 1852, so a gain of 0.9..1.1
		RangeGain:    uniform(rng, -185.2, 185.2),
		AzimuthBias:  uniform(rng, -10, 10),
		RangeNoise:   uniform(rng, 0, 5),
		AzimuthNoise: uniform(rng, 0, 2),
		EccValue:     uniform(rng, -5, 5),
		EccAngle:     uniform(rng, 0, 360),
	}
}

func fakeDetectionRate(rng *rand.Rand, radar string) model.DetectionRateRecord {
	pct := func(lo, hi float64) *float64 {
		v := uniform(rng, lo, hi)
		return &v
	}
	return model.DetectionRateRecord{
		DSName: radar,
		DSType: strconv.Itoa(1 + rng.IntN(3)),
		PdP:    pct(80, 100),
		PdS:    pct(70, 90),
		PdM:    pct(60, 80),
		PdPS:   pct(50, 70),
		PdPM:   pct(40, 60),
	}
}
