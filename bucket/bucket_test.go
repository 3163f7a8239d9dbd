package bucket

import (
	"math"
	"testing"

	"glyphtrain"
)

func TestOptimumNumberOfBucketsInterpolates(t *testing.T) {
	if got := OptimumNumberOfBuckets(500); got != 22 {
		t.Fatalf("OptimumNumberOfBuckets(500) = %d, want 22", got)
	}
	if got := OptimumNumberOfBuckets(1); got != MinBuckets {
		t.Fatalf("OptimumNumberOfBuckets(1) = %d, want %d", got, MinBuckets)
	}
	if got := OptimumNumberOfBuckets(100000); got != MaxBuckets {
		t.Fatalf("OptimumNumberOfBuckets(100000) = %d, want %d", got, MaxBuckets)
	}
}

func TestComputeChiSquaredMatchesKnownValue(t *testing.T) {
	c := NewChiCache()
	got := c.ComputeChiSquared(4, 0.01)
	if math.Abs(got-13.277) > 0.01 {
		t.Fatalf("ComputeChiSquared(4, 0.01) = %v, want ~13.277", got)
	}
}

func TestComputeChiSquaredMemoizesAcrossCalls(t *testing.T) {
	c := NewChiCache()
	first := c.ComputeChiSquared(6, 0.01)
	evalsAfterFirst := c.EvalCount()
	if evalsAfterFirst == 0 {
		t.Fatal("expected the first call to perform at least one evaluation")
	}

	second := c.ComputeChiSquared(6, 0.01)
	if second != first {
		t.Fatalf("ComputeChiSquared(6, 0.01) changed between calls: %v vs %v", first, second)
	}
	if c.EvalCount() != evalsAfterFirst {
		t.Fatalf("second call performed %d additional evaluations, want 0",
			c.EvalCount()-evalsAfterFirst)
	}

	// A different alpha for the same dof must still do fresh work.
	c.ComputeChiSquared(6, 0.05)
	if c.EvalCount() == evalsAfterFirst {
		t.Fatal("expected a new alpha to trigger new evaluations")
	}
}

func TestComputeChiSquaredRoundsOddDofUp(t *testing.T) {
	c := NewChiCache()
	odd := c.ComputeChiSquared(5, 0.01)
	even := c.ComputeChiSquared(6, 0.01)
	if odd != even {
		t.Fatalf("ComputeChiSquared(5, .) = %v, want equal to ComputeChiSquared(6, .) = %v", odd, even)
	}
}

func TestFTableKnownEntry(t *testing.T) {
	got := FTableValue(9, 0)
	if math.Abs(got-10.044) > 1e-9 {
		t.Fatalf("FTable[9][0] = %v, want 10.044", got)
	}
}

func TestHotellingThresholdClampsAndBoosts(t *testing.T) {
	base := HotellingThreshold(1, 12, 0)
	if math.Abs(base-10.044) > 1e-9 {
		t.Fatalf("HotellingThreshold(1, 12, 0) = %v, want 10.044", base)
	}

	boosted := HotellingThreshold(1, 12, 12)
	if math.Abs(boosted-(base+fTableBoostMargin)) > 1e-9 {
		t.Fatalf("HotellingThreshold with magic sample size = %v, want %v", boosted, base+fTableBoostMargin)
	}

	clamped := HotellingThreshold(50, 5000, 0)
	if clamped != fTable[FTableY-1][FTableX-1] {
		t.Fatalf("HotellingThreshold clamp = %v, want bottom-right table entry", clamped)
	}
}

func TestDistributionOKAcceptsMatchingNormalSample(t *testing.T) {
	cache := NewCache()
	const n = 2000
	b := cache.Get(Normal, n, 0.01)

	p := glyphtrain.ParamDesc{Min: -100, Max: 100}
	offsets := make([]float64, 0, n)
	// A deterministic, symmetric spread of offsets that closely tracks the
	// discrete normal density table itself should pass its own test.
	for i := 0; i < n; i++ {
		frac := (float64(i) + 0.5) / float64(n)
		z := normalQuantileApprox(frac)
		offsets = append(offsets, z*10)
	}
	FillBuckets(b, p, offsets, 0, 10)
	if !DistributionOK(b) {
		t.Fatal("expected a normally-distributed sample to pass DistributionOK")
	}
}

func TestDistributionOKRejectsConstantSampleAgainstNormal(t *testing.T) {
	cache := NewCache()
	const n = 2000
	b := cache.Get(Normal, n, 0.01)

	p := glyphtrain.ParamDesc{Min: -100, Max: 100}
	offsets := make([]float64, n)
	for i := range offsets {
		offsets[i] = 0
	}
	FillBuckets(b, p, offsets, 0, 10)
	if DistributionOK(b) {
		t.Fatal("expected a degenerate constant sample to fail a Normal fit")
	}
}

// normalQuantileApprox is a crude, monotonic approximation of the inverse
// standard normal CDF, good enough to generate a bell-shaped test sample
// (it does not need to be statistically precise, only symmetric and
// concentrated near zero).
func normalQuantileApprox(p float64) float64 {
	if p <= 0 {
		p = 1e-6
	}
	if p >= 1 {
		p = 1 - 1e-6
	}
	return math.Sqrt2 * erfinvApprox(2*p-1)
}

// erfinvApprox is Winitzki's approximation of the inverse error function.
func erfinvApprox(x float64) float64 {
	const a = 0.147
	ln := math.Log(1 - x*x)
	t1 := 2/(math.Pi*a) + ln/2
	inner := t1*t1 - ln/a
	return math.Copysign(math.Sqrt(math.Sqrt(inner)-t1), x)
}
