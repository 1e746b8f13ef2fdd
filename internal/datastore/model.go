// model.go defines the row layout of the local store tables
package datastore

import (
	"github.com/tphakala/rqm-etl/internal/model"
)

// Table names are fixed; dashboards and downstream tooling read them directly.
const (
	BiasTable          = "biases"
	DetectionRateTable = "detection_rates"
)

// BiasRow is one row of the biases table. The table has no primary key and
// rows are only ever appended.
type BiasRow struct {
	RadarName    string  `gorm:"column:Radar_Name"`
	AntennaType  string  `gorm:"column:Antenna_Type"`
	TimeBias     float64 `gorm:"column:Time_Bias"`
	RangeBias    float64 `gorm:"column:Range_Bias"`
	RangeGain    float64 `gorm:"column:Range_Gain"`
	AzimuthBias  float64 `gorm:"column:Azimuth_Bias"`
	RangeNoise   float64 `gorm:"column:Range_Noise"`
	AzimuthNoise float64 `gorm:"column:Azimuth_Noise"`
	EccValue     float64 `gorm:"column:Ecc_Value"`
	EccAngle     float64 `gorm:"column:Ecc_Angle"`
	JobDate      string  `gorm:"column:Job_Date"`
}

// TableName overrides GORM's pluralized default.
func (BiasRow) TableName() string {
	return BiasTable
}

// DetectionRateRow is one row of the detection_rates table. Percentages are
// NULL when no known-outcome samples existed.
type DetectionRateRow struct {
	DSName  string   `gorm:"column:ds_name"`
	DSType  string   `gorm:"column:ds_type"`
	PdP     *float64 `gorm:"column:pdP"`
	PdS     *float64 `gorm:"column:pdS"`
	PdM     *float64 `gorm:"column:pdM"`
	PdPS    *float64 `gorm:"column:pdPS"`
	PdPM    *float64 `gorm:"column:pdPM"`
	JobDate string   `gorm:"column:Job_Date"`
}

// TableName overrides GORM's pluralized default.
func (DetectionRateRow) TableName() string {
	return DetectionRateTable
}

func newBiasRow(date model.ProcessingDate, rec *model.BiasRecord) BiasRow {
	return BiasRow{
		RadarName:    rec.RadarName,
		AntennaType:  rec.AntennaType,
		TimeBias:     rec.TimeBias,
		RangeBias:    rec.RangeBias,
		RangeGain:    rec.RangeGain,
		AzimuthBias:  rec.AzimuthBias,
		RangeNoise:   rec.RangeNoise,
		AzimuthNoise: rec.AzimuthNoise,
		EccValue:     rec.EccValue,
		EccAngle:     rec.EccAngle,
		JobDate:      date.String(),
	}
}

func (r *BiasRow) record() model.BiasRecord {
	return model.BiasRecord{
		RadarName:    r.RadarName,
		AntennaType:  r.AntennaType,
		TimeBias:     r.TimeBias,
		RangeBias:    r.RangeBias,
		RangeGain:    r.RangeGain,
		AzimuthBias:  r.AzimuthBias,
		RangeNoise:   r.RangeNoise,
		AzimuthNoise: r.AzimuthNoise,
		EccValue:     r.EccValue,
		EccAngle:     r.EccAngle,
	}
}

func newDetectionRateRow(date model.ProcessingDate, rec *model.DetectionRateRecord) DetectionRateRow {
	return DetectionRateRow{
		DSName:  rec.DSName,
		DSType:  rec.DSType,
		PdP:     rec.PdP,
		PdS:     rec.PdS,
		PdM:     rec.PdM,
		PdPS:    rec.PdPS,
		PdPM:    rec.PdPM,
		JobDate: date.String(),
	}
}

func (r *DetectionRateRow) record() model.DetectionRateRecord {
	return model.DetectionRateRecord{
		DSName: r.DSName,
		DSType: r.DSType,
		PdP:    r.PdP,
		PdS:    r.PdS,
		PdM:    r.PdM,
		PdPS:   r.PdPS,
		PdPM:   r.PdPM,
	}
}
