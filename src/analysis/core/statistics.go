package core

import (
	"math"
	"sort"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	// Calculate mean
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	// For single element, return std = 0
	if len(data) == 1 {
		return mean, 0
	}

	// Calculate standard deviation with N denominator (population std)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// Median returns the middle value of data (average of the two middle values
// for even lengths). The input slice is not modified.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// -----------------------------------------------------------------------------

// RoundHalfUp rounds v to the given number of decimal places, with ties away
// from zero (0.00005 -> 0.0001).
func RoundHalfUp(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	if v >= 0 {
		return math.Floor(v*shift+0.5) / shift
	}
	return math.Ceil(v*shift-0.5) / shift
}
