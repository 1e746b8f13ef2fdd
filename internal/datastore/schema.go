package datastore

import (
	"context"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
)

// The DDL is written out rather than auto-migrated so the column types and
// names stay exactly what existing readers of rqmData.db expect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS biases (
		Radar_Name TEXT,
		Antenna_Type TEXT,
		Time_Bias REAL,
		Range_Bias REAL,
		Range_Gain REAL,
		Azimuth_Bias REAL,
		Range_Noise REAL,
		Azimuth_Noise REAL,
		Ecc_Value REAL,
		Ecc_Angle REAL,
		Job_Date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS detection_rates (
		ds_name TEXT,
		ds_type INT,
		pdP REAL,
		pdS REAL,
		pdM REAL,
		pdPS REAL,
		pdPM REAL,
		Job_Date TEXT
	)`,
}

// EnsureSchema creates the biases and detection_rates tables if they do not
// exist. Existing tables and their rows are left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range schema {
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return dbError(err, errors.CategoryStoreWrite, "ensure_schema", "path", s.path)
		}
	}

	s.logger.Debug("schema ensured", logger.String("path", s.path))
	return nil
}
