package distill

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// DimensionSummary reports descriptive statistics for a list of values;
// cmd/glyphtrain's dump subcommand prints one, computed over a prototype's
// mean vector, alongside each prototype so an operator can sanity-check a
// fit without recomputing covariance by hand.
type DimensionSummary struct {
	Mean     float64
	Median   float64
	StdDev   float64
	P10, P90 float64
}

// SummarizeDimension computes a DimensionSummary for values using
// github.com/montanaflynn/stats, the same descriptive-statistics library
// jndunlap-gohypo's internal/profiling/distribution.go uses for its own
// distribution-shape diagnostics. It returns an error only if values is
// empty, matching that package's own error contract.
func SummarizeDimension(values []float64) (DimensionSummary, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return DimensionSummary{}, fmt.Errorf("distill: summarizing dimension: %w", err)
	}
	median, err := stats.Median(values)
	if err != nil {
		return DimensionSummary{}, fmt.Errorf("distill: summarizing dimension: %w", err)
	}
	stddev, err := stats.StandardDeviation(values)
	if err != nil {
		return DimensionSummary{}, fmt.Errorf("distill: summarizing dimension: %w", err)
	}
	p10, err := stats.Percentile(values, 10)
	if err != nil {
		return DimensionSummary{}, fmt.Errorf("distill: summarizing dimension: %w", err)
	}
	p90, err := stats.Percentile(values, 90)
	if err != nil {
		return DimensionSummary{}, fmt.Errorf("distill: summarizing dimension: %w", err)
	}
	return DimensionSummary{Mean: mean, Median: median, StdDev: stddev, P10: p10, P90: p90}, nil
}
