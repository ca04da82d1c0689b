package core

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the relative change between two values as a
// fraction. Returns 0 when the previous value is zero.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// PercentChange returns the relative change between two values in percent,
// rounded to four decimal places.
func PercentChange(current, previous float64) float64 {
	return RoundHalfUp(CalculateChangePercent(current, previous)*100, 4)
}
