package model

// MissingValue is stored for a bias field the upstream had no data for.
const MissingValue = -1.0

// BiasRecord is one radar calibration row. Numeric fields are rounded to
// 5 decimal places and hold MissingValue when the upstream value was absent.
type BiasRecord struct {
	RadarName    string
	AntennaType  string
	TimeBias     float64
	RangeBias    float64
	RangeGain    float64
	AzimuthBias  float64
	RangeNoise   float64
	AzimuthNoise float64
	EccValue     float64
	EccAngle     float64
}

// DetectionRateRecord is one data source's detection percentages. A nil
// percentage means no known-outcome samples existed for that channel.
type DetectionRateRecord struct {
	DSName string
	DSType string
	PdP    *float64
	PdS    *float64
	PdM    *float64
	PdPS   *float64
	PdPM   *float64
}
