package game

import (
	"math"
	"slices"
)

// Sum ...
func Sum(data []float64) (result float64) {
	for _, v := range data {
		result += v
	}
	return result
}

// Mean ...
func Mean(data []float64) float64 {
	count := float64(len(data))
	if count == 0 {
		return 0
	}
	return Sum(data) / count
}

// Median returns the median of data without reordering the caller's slice.
func Median(data []float64) (median float64) {
	count := float64(len(data))
	if count == 0 {
		return 0.0
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)
	median = (sorted[int((count-1)*0.5)] + sorted[int(count*0.5)]) * 0.5
	if int(count)%2 != 0 {
		median = sorted[int(count*0.5)]
	}

	return
}

// Max ...
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return slices.Max(data)
}

// Variance ...
func Variance(data []float64) (variance float64) {
	count := float64(len(data))
	if count == 0 {
		return 0.0
	}
	mean := Sum(data) / count

	for _, number := range data {
		variance += math.Pow(number-mean, 2)
	}
	return variance / count
}

// StandardDeviation ...
func StandardDeviation(data []float64) float64 {
	return math.Sqrt(Variance(data))
}
