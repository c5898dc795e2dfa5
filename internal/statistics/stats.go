package statistics

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats holds summary measures of a sample, e.g. simulated p-values
type Stats struct {
	Median float64
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	CV     float64   // coefficient of variation, percent
	Values []float64 // sorted ascending
}

// Median of the values; the two middle values are averaged for even sizes
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return medianSorted(sortedCopy(values))
}

func medianSorted(sorted []float64) float64 {
	lower := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(sorted)%2 == 1 {
		return lower
	}
	return (lower + sorted[len(sorted)/2]) / 2
}

// Mean is the arithmetic mean, 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev is the sample standard deviation, 0 for fewer than two values
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// CV is stddev / |mean| in percent, 0 when the mean is 0
func CV(values []float64) float64 {
	mean, std := meanStdDev(values)
	return cv(mean, std)
}

func cv(mean, std float64) float64 {
	if mean == 0 {
		return 0
	}
	return std / math.Abs(mean) * 100
}

func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// FractionBelow returns the share of values strictly below threshold
func FractionBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := sortedCopy(values)
	return float64(sort.SearchFloat64s(sorted, threshold)) / float64(len(sorted))
}

// Calculate summarizes a sample
func Calculate(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := sortedCopy(values)
	mean, std := meanStdDev(sorted)
	return Stats{
		Median: medianSorted(sorted),
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		CV:     cv(mean, std),
		Values: sorted,
	}
}

func sortedCopy(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}
