// Package metrics provides constants used across metric definitions.
package metrics

// Label values for the tenants counter.
const (
	// StatusSuccess marks a tenant whose rows all loaded.
	StatusSuccess = "success"
	// StatusFailed marks a tenant that ended with an error.
	StatusFailed = "failed"
)

// Histogram bucket constants.
const (
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
