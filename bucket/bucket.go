// Package bucket implements the histogram goodness-of-fit machinery used to
// decide whether a cluster's samples along one dimension plausibly came from
// a Normal, Uniform, or "random" (don't-care) distribution. It is grounded
// on original_source/classify/cluster.cpp's BUCKETS/MakeBuckets/FillBuckets/
// DistributionOK family.
package bucket

import (
	"math"

	"glyphtrain"
)

// Distribution names the probability distribution a dimension is tested
// against. Random is not really a distribution: it marks a dimension that
// is allowed to vary without constraint, tested against a uniform density
// exactly like Uniform (original_source/classify/cluster.cpp's
// DensityFunction table maps both uniform and D_random to UniformDensity).
type Distribution int

const (
	Normal Distribution = iota
	Uniform
	Random
	distributionCount
)

func (d Distribution) String() string {
	switch d {
	case Normal:
		return "normal"
	case Uniform:
		return "uniform"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// BucketTableSize is the resolution of the discrete density table every
// distribution is sampled over.
const BucketTableSize = 1024

// NormalExtent is how many standard deviations the discrete normal density
// table spans in each direction from its mean.
const NormalExtent = 3.0

// MinBuckets and MaxBuckets bound the number of histogram buckets a test
// can use, matching original_source/classify/cluster.h.
const (
	MinBuckets = 5
	MaxBuckets = 39
)

const minSamplesPerBucket = 5
const minSamples = MinBuckets * minSamplesPerBucket

var (
	normalStdDev    = BucketTableSize / (2.0 * NormalExtent)
	normalVariance  = (BucketTableSize * BucketTableSize) / (4.0 * NormalExtent * NormalExtent)
	normalMean      = BucketTableSize / 2.0
	normalMagnitude = (2.0 * NormalExtent) / (math.Sqrt(2*math.Pi) * BucketTableSize)

	uniformDensityValue = 1.0 / BucketTableSize
)

func normalDensity(x float64) float64 {
	d := x - normalMean
	return normalMagnitude * math.Exp(-0.5*d*d/normalVariance)
}

func uniformDensity(x float64) float64 {
	if x >= 0 && x <= BucketTableSize {
		return uniformDensityValue
	}
	return 0
}

func densityFor(d Distribution) func(float64) float64 {
	switch d {
	case Normal:
		return normalDensity
	default:
		return uniformDensity
	}
}

// trapezoid approximates the integral of a density sampled at two adjacent
// points one unit apart.
func trapezoid(f1, f2 float64) float64 {
	return (f1 + f2) / 2.0
}

// odd reports whether n is odd.
func odd(n int) bool { return n%2 != 0 }

var sampleCountTable = [...]uint32{minSamples, 200, 400, 600, 800, 1000, 1500, 2000}
var bucketCountTable = [...]int{MinBuckets, 16, 20, 24, 27, 30, 35, MaxBuckets}

// OptimumNumberOfBuckets computes the number of histogram buckets to use for
// a chi-squared goodness-of-fit test over sampleCount samples, by linear
// interpolation of Table 4.1 (Bendat & Piersol, "Measurement and Analysis of
// Random Data", pg. 147).
func OptimumNumberOfBuckets(sampleCount uint32) int {
	if sampleCount < sampleCountTable[0] {
		return bucketCountTable[0]
	}
	for i := 1; i < len(sampleCountTable); i++ {
		if sampleCount <= sampleCountTable[i] {
			slope := float64(bucketCountTable[i]-bucketCountTable[i-1]) /
				float64(sampleCountTable[i]-sampleCountTable[i-1])
			return bucketCountTable[i-1] + int(slope*float64(sampleCount-sampleCountTable[i-1]))
		}
	}
	return bucketCountTable[len(bucketCountTable)-1]
}

// degreeOffsets accounts for the parameters estimated from the sample
// itself (mean, and for Normal also variance) that reduce the effective
// degrees of freedom of the chi-squared test, indexed by Distribution.
var degreeOffsets = [...]int{3, 3, 1}

// DegreesOfFreedom computes the (always-even) degrees of freedom for a
// chi-squared test with the given number of histogram buckets. Rounding up
// makes the resulting chi-squared threshold more lenient than optimal,
// which original_source/classify/cluster.cpp's DegreesOfFreedom documents
// as an accepted tradeoff for a closed-form solution.
func DegreesOfFreedom(d Distribution, numBuckets int) int {
	dof := numBuckets - degreeOffsets[d]
	if odd(dof) {
		dof++
	}
	return dof
}

// mirror maps a bucket index in the upper half of the table to its
// symmetric counterpart in the lower half.
func mirror(n, numBuckets int) int { return numBuckets - n - 1 }

// Buckets is a histogram over one dimension's normalized sample values,
// built against an expected shape (Normal, Uniform, or Random) and ready to
// accept observations and report whether they fit that shape.
type Buckets struct {
	Distribution  Distribution
	NumberOfBuckets int
	SampleCount   uint32
	Confidence    float64
	ChiSquared    float64
	Count         []uint32
	ExpectedCount []float64
	bucketOf      [BucketTableSize]int
}

// MakeBuckets allocates a new histogram for the given distribution, sized
// for sampleCount observations, with its chi-squared acceptance threshold
// set for the given confidence (probability of a Type I error).
func MakeBuckets(chi *ChiCache, d Distribution, sampleCount uint32, confidence float64) *Buckets {
	n := OptimumNumberOfBuckets(sampleCount)
	b := &Buckets{
		Distribution:    d,
		NumberOfBuckets: n,
		SampleCount:     sampleCount,
		Confidence:      confidence,
		Count:           make([]uint32, n),
		ExpectedCount:   make([]float64, n),
	}
	b.ChiSquared = chi.ComputeChiSquared(DegreesOfFreedom(d, n), confidence)

	bucketProbability := 1.0 / float64(n)
	currentBucket := n / 2
	var nextBoundary float64
	if odd(n) {
		nextBoundary = bucketProbability / 2
	} else {
		nextBoundary = bucketProbability
	}

	density := densityFor(d)
	var probability float64
	lastDensity := density(BucketTableSize / 2)
	for i := BucketTableSize / 2; i < BucketTableSize; i++ {
		dens := density(float64(i + 1))
		delta := trapezoid(lastDensity, dens)
		probability += delta
		if probability > nextBoundary {
			if currentBucket < n-1 {
				currentBucket++
			}
			nextBoundary += bucketProbability
		}
		b.bucketOf[i] = currentBucket
		b.ExpectedCount[currentBucket] += delta * float64(sampleCount)
		lastDensity = dens
	}
	b.ExpectedCount[currentBucket] += (0.5 - probability) * float64(sampleCount)

	for i, j := 0, BucketTableSize-1; i < j; i, j = i+1, j-1 {
		b.bucketOf[i] = mirror(b.bucketOf[j], n)
	}
	for i, j := 0, n-1; i <= j; i, j = i+1, j-1 {
		b.ExpectedCount[i] += b.ExpectedCount[j]
	}
	return b
}

// AdjustBuckets rescales ExpectedCount to a new sample count without
// rebuilding the bucket mapping, mirroring original_source's AdjustBuckets.
func (b *Buckets) AdjustBuckets(newSampleCount uint32) {
	factor := float64(newSampleCount) / float64(b.SampleCount)
	for i := range b.ExpectedCount {
		b.ExpectedCount[i] *= factor
	}
	b.SampleCount = newSampleCount
}

// Init zeroes every bucket's observed count, leaving ExpectedCount intact.
func (b *Buckets) Init() {
	for i := range b.Count {
		b.Count[i] = 0
	}
}

// normalBucketIndex finds which bucket a value normalized against a Normal
// density with the given mean/stddev falls into, wrapping circular
// dimensions the short way first.
func normalBucketIndex(p glyphtrain.ParamDesc, x, mean, stddev float64) int {
	x = wrapToward(p, x, mean)
	X := ((x - mean) / stddev) * normalStdDev + normalMean
	return clipToBucket(X)
}

// uniformBucketIndex is the Uniform/Random-distribution analogue of
// normalBucketIndex; stddev here is half the width of the tested range.
func uniformBucketIndex(p glyphtrain.ParamDesc, x, mean, stddev float64) int {
	x = wrapToward(p, x, mean)
	X := (x-mean)/(2*stddev)*BucketTableSize + BucketTableSize/2.0
	return clipToBucket(X)
}

func wrapToward(p glyphtrain.ParamDesc, x, mean float64) float64 {
	if !p.Circular {
		return x
	}
	half := p.HalfRange()
	if x-mean > half {
		return x - p.Range()
	}
	if x-mean < -half {
		return x + p.Range()
	}
	return x
}

func clipToBucket(x float64) int {
	if x < 0 {
		return 0
	}
	if x > BucketTableSize-1 {
		return BucketTableSize - 1
	}
	return int(math.Floor(x))
}

// FillBuckets resets b's observed counts and tallies values (each sample's
// coordinate in the tested dimension) into it, using the distribution-
// appropriate bucket index function. A zero stddev means the dimension
// can't be statistically normalized; values are then spread round-robin
// across buckets, with values above/below the mean pinned to the
// last/first bucket, matching original_source's zero-stddev pseudo-analysis.
func FillBuckets(b *Buckets, p glyphtrain.ParamDesc, values []float64, mean, stddev float64) {
	b.Init()
	if stddev == 0 {
		next := 0
		for _, x := range values {
			var id int
			switch {
			case x > mean:
				id = b.NumberOfBuckets - 1
			case x < mean:
				id = 0
			default:
				id = next
			}
			b.Count[id]++
			next++
			if next >= b.NumberOfBuckets {
				next = 0
			}
		}
		return
	}

	index := normalBucketIndex
	if b.Distribution != Normal {
		index = uniformBucketIndex
	}
	for _, x := range values {
		id := b.bucketOf[index(p, x, mean, stddev)]
		b.Count[id]++
	}
}

// DistributionOK runs the chi-squared goodness-of-fit test: it reports
// whether b's observed counts are close enough to its expected counts to
// accept the hypothesis that the samples came from b's distribution.
func DistributionOK(b *Buckets) bool {
	var total float64
	for i := range b.Count {
		diff := float64(b.Count[i]) - b.ExpectedCount[i]
		total += diff * diff / b.ExpectedCount[i]
	}
	return total <= b.ChiSquared
}
