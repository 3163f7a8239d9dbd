package clustering

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"glyphtrain"
)

// MinVariance is the floor applied to every diagonal covariance entry
// (spec.md §3, ε = 4e-4) so that a degenerate (zero-spread) dimension
// never produces a zero or negative variance downstream.
const MinVariance = 4e-4

// Statistics holds the per-cluster quantities distillation needs:
// min/max circularly-adjusted offsets from the cluster mean, the full
// covariance matrix, and its geometric-mean-of-diagonal summary.
type Statistics struct {
	Min, Max    []float64 // per-dimension extrema of (sample_i - mean_i)
	Covariance  *mat.SymDense
	AvgVariance float64
}

// Variance returns the floored diagonal covariance entry for dimension i.
func (s *Statistics) Variance(i int) float64 {
	v := s.Covariance.At(i, i)
	if v < MinVariance {
		return MinVariance
	}
	return v
}

// Correlation returns the independence-test statistic for dimensions i, j
// per spec.md §4.3 step 4: the fourth root of (cov^2 / (var_i * var_j)),
// not the textbook square root -- this is the documented §9 oddity,
// preserved deliberately rather than "fixed" to the textbook form.
func (s *Statistics) Correlation(i, j int) float64 {
	vi, vj := s.Variance(i), s.Variance(j)
	if vi == 0 || vj == 0 {
		return 0
	}
	cov := s.Covariance.At(i, j)
	ratio := (cov * cov) / (vi * vj)
	if ratio < 0 {
		ratio = 0
	}
	return math.Sqrt(math.Sqrt(ratio))
}

// ComputeStatistics computes cluster statistics from the cluster's mean
// and its leaf samples, using a non-incremental pass required for correct
// handling of circular dimensions (spec.md §4.3 step 2): the offset of
// each sample from the mean is computed independently rather than folded
// into a running sum, exactly as original_source/classify/protos.cpp's
// ComputeStats does.
func ComputeStatistics(params []glyphtrain.ParamDesc, mean []float64, samples [][]float64) Statistics {
	d := len(params)
	n := len(samples)

	min := make([]float64, d)
	max := make([]float64, d)
	for i := range min {
		min[i] = math.MaxFloat64
		max[i] = -math.MaxFloat64
	}

	offsets := make([][]float64, n)
	for s, sample := range samples {
		off := make([]float64, d)
		for i, p := range params {
			delta := p.Delta(mean[i], sample[i])
			off[i] = delta
			if delta < min[i] {
				min[i] = delta
			}
			if delta > max[i] {
				max[i] = delta
			}
		}
		offsets[s] = off
	}
	if n == 0 {
		for i := range min {
			min[i], max[i] = 0, 0
		}
	}

	cov := mat.NewSymDense(d, nil)
	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			var sum float64
			for _, off := range offsets {
				sum += off[i] * off[j]
			}
			cov.SetSym(i, j, sum/denom)
		}
	}

	avgVar := 1.0
	if d > 0 {
		product := 1.0
		for i := 0; i < d; i++ {
			v := cov.At(i, i)
			if v < MinVariance {
				v = MinVariance
			}
			product *= v
		}
		avgVar = math.Pow(product, 1.0/float64(d))
	}

	return Statistics{Min: min, Max: max, Covariance: cov, AvgVariance: avgVar}
}
