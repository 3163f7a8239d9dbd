package bucket

// Cache holds one Buckets per (distribution, bucket count) pair ever
// requested, so that repeated goodness-of-fit tests against the same shape
// and sample count reuse the same expected-count table instead of
// recomputing it. This mirrors original_source/classify/cluster.h's
// CLUSTERER.bucket_cache field and cluster.cpp's GetBuckets.
type Cache struct {
	chi   *ChiCache
	slots [distributionCount][MaxBuckets + 1 - MinBuckets]*Buckets
}

// NewCache returns an empty bucket cache backed by its own chi-squared
// value cache.
func NewCache() *Cache {
	return &Cache{chi: NewChiCache()}
}

// Get returns a Buckets appropriate for testing sampleCount samples against
// d at the given confidence, reusing and adjusting a cached one when the
// bucket count matches.
func (c *Cache) Get(d Distribution, sampleCount uint32, confidence float64) *Buckets {
	n := OptimumNumberOfBuckets(sampleCount)
	slot := n - MinBuckets
	b := c.slots[d][slot]

	if b == nil {
		b = MakeBuckets(c.chi, d, sampleCount, confidence)
		c.slots[d][slot] = b
		return b
	}

	if sampleCount != b.SampleCount {
		b.AdjustBuckets(sampleCount)
	}
	if confidence != b.Confidence {
		b.Confidence = confidence
		b.ChiSquared = c.chi.ComputeChiSquared(DegreesOfFreedom(d, b.NumberOfBuckets), confidence)
	}
	b.Init()
	return b
}
