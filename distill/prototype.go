// Package distill turns a cluster tree into a library of prototypes: shape
// descriptions (spherical, elliptical, or per-dimension mixed) that
// approximate the distribution of the samples each prototype's cluster
// covers. It is grounded on original_source/classify/cluster.cpp's
// MakePrototype and its New*Proto/MakeDim* helpers.
package distill

import (
	"math"

	"glyphtrain"
	"glyphtrain/bucket"
	"glyphtrain/clustering"
	"glyphtrain/config"
)

// minVariance floors every variance estimate a prototype can report; it is
// clustering.MinVariance under a package-local name.
const minVariance = clustering.MinVariance

// Prototype approximates one cluster's samples with a parametric density:
// spherical and elliptical prototypes are always Normal in every
// dimension; mixed prototypes carry a Distrib tag per dimension.
type Prototype struct {
	Significant bool
	Merged      bool
	Style       config.Style
	NumSamples  int
	ClusterIdx  int

	Mean           []float64
	TotalMagnitude float64
	LogMagnitude   float64

	// Variance, Magnitude, and Weight hold one entry for a Spherical
	// prototype (shared across all dimensions) or one per dimension for
	// Elliptical and Mixed prototypes.
	Variance  []float64
	Magnitude []float64
	Weight    []float64

	// Distrib is non-nil only for Mixed prototypes: Distrib[i] names the
	// distribution dimension i was fit to.
	Distrib []bucket.Distribution
}

// StandardDeviation returns the standard deviation of dimension i; for a
// Spherical prototype every dimension shares the same value.
func (p *Prototype) StandardDeviation(i int) float64 {
	switch p.Style {
	case config.Spherical:
		return math.Sqrt(p.Variance[0])
	case config.Elliptical:
		return math.Sqrt(p.Variance[i])
	default: // Mixed
		switch p.Distrib[i] {
		case bucket.Normal:
			return math.Sqrt(p.Variance[i])
		default:
			return p.Variance[i]
		}
	}
}

func newSimpleProto(mean []float64) *Prototype {
	return &Prototype{
		Significant: true,
		Mean:        append([]float64(nil), mean...),
	}
}

// NewPrototypeFromFields rebuilds a Prototype's derived fields (Magnitude,
// Weight, TotalMagnitude, LogMagnitude) from its persisted ones (Style,
// Mean, Variance, and, for Mixed, Distrib), the Go analogue of
// original_source/classify/clusttool.cpp's ReadPrototype, which performs
// this same derivation immediately after parsing a prototype record.
func NewPrototypeFromFields(style config.Style, significant bool, numSamples int, mean, variance []float64, distrib []bucket.Distribution) *Prototype {
	p := newSimpleProto(mean)
	p.Significant = significant
	p.NumSamples = numSamples
	p.Style = style
	p.Variance = append([]float64(nil), variance...)

	switch style {
	case config.Spherical:
		v := p.Variance[0]
		mag := 1.0 / math.Sqrt(2*math.Pi*v)
		p.Magnitude = []float64{mag}
		p.Weight = []float64{1.0 / v}
		p.TotalMagnitude = math.Pow(mag, float64(len(mean)))
		p.LogMagnitude = math.Log(p.TotalMagnitude)
	case config.Mixed:
		p.Distrib = append([]bucket.Distribution(nil), distrib...)
		n := len(mean)
		p.Magnitude = make([]float64, n)
		p.Weight = make([]float64, n)
		p.TotalMagnitude = 1.0
		for i := 0; i < n; i++ {
			v := p.Variance[i]
			switch p.Distrib[i] {
			case bucket.Normal:
				p.Magnitude[i] = 1.0 / math.Sqrt(2*math.Pi*v)
				p.Weight[i] = 1.0 / v
			default: // Uniform, Random
				p.Magnitude[i] = 1.0 / (2.0 * v)
			}
			p.TotalMagnitude *= p.Magnitude[i]
		}
		p.LogMagnitude = math.Log(p.TotalMagnitude)
	default: // Elliptical, Automatic
		n := len(mean)
		p.Magnitude = make([]float64, n)
		p.Weight = make([]float64, n)
		p.TotalMagnitude = 1.0
		for i := 0; i < n; i++ {
			v := p.Variance[i]
			p.Magnitude[i] = 1.0 / math.Sqrt(2*math.Pi*v)
			p.Weight[i] = 1.0 / v
			p.TotalMagnitude *= p.Magnitude[i]
		}
		p.LogMagnitude = math.Log(p.TotalMagnitude)
	}
	return p
}

func floorVariance(v float64) float64 {
	if v < minVariance {
		return minVariance
	}
	return v
}

// newSphericalProto builds a Prototype with one variance shared across
// every dimension, equal to the cluster's geometric-mean-of-diagonal
// variance.
func newSphericalProto(cluster *clustering.Cluster, stats clustering.Statistics) *Prototype {
	p := newSimpleProto(cluster.Mean)
	p.Style = config.Spherical
	p.NumSamples = cluster.SampleCount

	v := floorVariance(stats.AvgVariance)
	mag := 1.0 / math.Sqrt(2*math.Pi*v)
	n := len(cluster.Mean)

	p.Variance = []float64{v}
	p.Magnitude = []float64{mag}
	p.Weight = []float64{1.0 / v}
	p.TotalMagnitude = math.Pow(mag, float64(n))
	p.LogMagnitude = math.Log(p.TotalMagnitude)
	return p
}

// newEllipticalProto builds a Prototype with an independent variance per
// dimension, taken from the cluster's covariance diagonal.
func newEllipticalProto(cluster *clustering.Cluster, stats clustering.Statistics) *Prototype {
	p := newSimpleProto(cluster.Mean)
	p.Style = config.Elliptical
	p.NumSamples = cluster.SampleCount

	n := len(cluster.Mean)
	p.Variance = make([]float64, n)
	p.Magnitude = make([]float64, n)
	p.Weight = make([]float64, n)

	p.TotalMagnitude = 1.0
	for i := 0; i < n; i++ {
		v := floorVariance(stats.Covariance.At(i, i))
		p.Variance[i] = v
		p.Magnitude[i] = 1.0 / math.Sqrt(2*math.Pi*v)
		p.Weight[i] = 1.0 / v
		p.TotalMagnitude *= p.Magnitude[i]
	}
	p.LogMagnitude = math.Log(p.TotalMagnitude)
	return p
}

// newMixedProto starts from an elliptical prototype (every dimension
// Normal) so that makeDimRandom/makeDimUniform can selectively override
// individual dimensions.
func newMixedProto(cluster *clustering.Cluster, stats clustering.Statistics) *Prototype {
	p := newEllipticalProto(cluster, stats)
	p.Style = config.Mixed
	p.Distrib = make([]bucket.Distribution, len(p.Mean))
	for i := range p.Distrib {
		p.Distrib[i] = bucket.Normal
	}
	return p
}

// makeDimRandom overrides dimension i of a mixed prototype to the
// don't-care Random distribution, spanning the dimension's full range.
func makeDimRandom(p *Prototype, i int, param glyphtrain.ParamDesc) {
	p.Distrib[i] = bucket.Random
	p.Mean[i] = param.MidRange()
	p.Variance[i] = param.HalfRange()

	p.TotalMagnitude /= p.Magnitude[i]
	p.Magnitude[i] = 1.0 / param.Range()
	p.TotalMagnitude *= p.Magnitude[i]
	p.LogMagnitude = math.Log(p.TotalMagnitude)
}

// makeDimUniform overrides dimension i of a mixed prototype to Uniform,
// spanning the observed min/max offset from the cluster mean.
func makeDimUniform(p *Prototype, i int, clusterMean float64, stats clustering.Statistics) {
	p.Distrib[i] = bucket.Uniform
	p.Mean[i] = clusterMean + (stats.Min[i]+stats.Max[i])/2
	v := (stats.Max[i] - stats.Min[i]) / 2
	p.Variance[i] = floorVariance(v)

	p.TotalMagnitude /= p.Magnitude[i]
	p.Magnitude[i] = 1.0 / (2.0 * p.Variance[i])
	p.TotalMagnitude *= p.Magnitude[i]
	p.LogMagnitude = math.Log(p.TotalMagnitude)
}
