package distill

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"glyphtrain"
	"glyphtrain/bucket"
	"glyphtrain/clustering"
	"glyphtrain/config"
)

// minSamplesNeeded is the absolute floor on cluster size below which a
// cluster is always treated as degenerate, regardless of how small
// cfg.MinSamples*numChar works out to.
const minSamplesNeeded = 1

// Distiller turns cluster trees into prototype libraries. Its bucket cache
// is shared across every cluster it processes so that goodness-of-fit
// histograms for a given distribution and sample count are built once.
type Distiller struct {
	params  []glyphtrain.ParamDesc
	buckets *bucket.Cache
	numChar int
}

// NewDistiller prepares a Distiller over the given dimension descriptors;
// numChar is the number of distinct training characters, used both to
// scale cfg.MinSamples and to bound the MultipleCharSamples test.
func NewDistiller(params []glyphtrain.ParamDesc, numChar int) *Distiller {
	return &Distiller{params: params, buckets: bucket.NewCache(), numChar: numChar}
}

// Distill walks the cluster tree rooted at root, producing one prototype
// per cluster that cfg.ProtoStyle can adequately approximate, splitting
// into Left/Right and recursing otherwise (spec.md §4.4). Every cluster a
// prototype was made from has its Prototype flag set.
func (d *Distiller) Distill(cfg config.ClusterConfig, arena *clustering.Arena, root int) []*Prototype {
	var protos []*Prototype
	stack := []int{root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		proto := d.makePrototype(cfg, arena, idx)
		if proto != nil {
			proto.ClusterIdx = idx
			arena.Get(idx).Prototype = true
			protos = append(protos, proto)
			continue
		}

		c := arena.Get(idx)
		if c.IsLeaf() {
			// A leaf has no children to split into, so whatever made
			// makePrototype reject it (multi-char filter, independence, or
			// too few samples for cfg.MinSamples), it must still yield a
			// prototype here, marked insignificant. Pass minSamples
			// strictly above the leaf's own SampleCount so
			// makeDegenerateProto's ">=" guard can never return nil for it.
			fallback := makeDegenerateProto(cfg.ProtoStyle, c, clustering.ComputeStatistics(d.params, c.Mean, [][]float64{c.Mean}), c.SampleCount+1)
			fallback.ClusterIdx = idx
			c.Prototype = true
			protos = append(protos, fallback)
			continue
		}
		stack = append(stack, c.Right, c.Left)
	}
	return protos
}

func (d *Distiller) makePrototype(cfg config.ClusterConfig, arena *clustering.Arena, idx int) *Prototype {
	cluster := arena.Get(idx)

	if multipleCharSamples(arena, idx, d.numChar, cfg.MaxIllegal) {
		return nil
	}

	leaves := arena.LeafSamples(idx)
	samples := make([][]float64, len(leaves))
	for i, leafIdx := range leaves {
		samples[i] = arena.Get(leafIdx).Mean
	}
	stats := clustering.ComputeStatistics(d.params, cluster.Mean, samples)

	minSamples := int(cfg.MinSamples * float64(d.numChar))
	if proto := makeDegenerateProto(cfg.ProtoStyle, cluster, stats, minSamples); proto != nil {
		return proto
	}

	if !independent(d.params, stats, cfg.Independence) {
		return nil
	}

	if cfg.ProtoStyle == config.Elliptical && !cluster.IsLeaf() {
		left, right := arena.Get(cluster.Left), arena.Get(cluster.Right)
		if d.hotellingAccepts(cfg, left, right, stats) {
			return newEllipticalProto(cluster, stats)
		}
	}

	buckets := d.buckets.Get(bucket.Normal, uint32(cluster.SampleCount), cfg.Confidence)

	switch cfg.ProtoStyle {
	case config.Spherical:
		return d.makeSpherical(cluster, stats, samples, buckets)
	case config.Elliptical:
		return d.makeElliptical(cluster, stats, samples, buckets)
	case config.Mixed:
		return d.makeMixed(cfg, cluster, stats, samples, buckets)
	default: // Automatic
		if p := d.makeSpherical(cluster, stats, samples, buckets); p != nil {
			return p
		}
		if p := d.makeElliptical(cluster, stats, samples, buckets); p != nil {
			return p
		}
		return d.makeMixed(cfg, cluster, stats, samples, buckets)
	}
}

// makeDegenerateProto returns an insignificant prototype for clusters too
// small to analyze statistically, or nil if cluster is large enough.
func makeDegenerateProto(style config.Style, cluster *clustering.Cluster, stats clustering.Statistics, minSamples int) *Prototype {
	if minSamples < minSamplesNeeded {
		minSamples = minSamplesNeeded
	}
	if cluster.SampleCount >= minSamples {
		return nil
	}

	var p *Prototype
	switch style {
	case config.Spherical:
		p = newSphericalProto(cluster, stats)
	case config.Mixed:
		p = newMixedProto(cluster, stats)
	default: // Elliptical, Automatic
		p = newEllipticalProto(cluster, stats)
	}
	p.Significant = false
	return p
}

// multipleCharSamples reports whether too many distinct training
// characters contribute more than one sample to the cluster at idx,
// which signals the cluster mixes unrelated shapes and should be split
// rather than distilled.
func multipleCharSamples(arena *clustering.Arena, idx, numChar int, maxIllegal float64) bool {
	leaves := arena.LeafSamples(idx)
	seen := make([]bool, numChar)
	illegal := make([]bool, numChar)

	numCharInCluster := len(leaves)
	numIllegal := 0
	for _, leafIdx := range leaves {
		charID := arena.Get(leafIdx).CharID
		if !seen[charID] {
			seen[charID] = true
			continue
		}
		if !illegal[charID] {
			numIllegal++
			illegal[charID] = true
		}
		numCharInCluster--
		if numCharInCluster <= 0 {
			return true
		}
		if float64(numIllegal)/float64(numCharInCluster) > maxIllegal {
			return true
		}
	}
	return false
}

// independent reports whether every pair of essential dimensions has a
// correlation coefficient at or below maxCorrelation.
func independent(params []glyphtrain.ParamDesc, stats clustering.Statistics, maxCorrelation float64) bool {
	dims := glyphtrain.EssentialDims(params)
	for a := 0; a < len(dims); a++ {
		for b := a + 1; b < len(dims); b++ {
			if stats.Correlation(dims[a], dims[b]) > maxCorrelation {
				return false
			}
		}
	}
	return true
}

// hotellingAccepts runs Hotelling's T-squared test to decide whether the
// difference between left's and right's means is too small to justify
// keeping them split, i.e. whether the merged cluster may stand as one
// elliptical prototype without further per-dimension fitting.
func (d *Distiller) hotellingAccepts(cfg config.ClusterConfig, left, right *clustering.Cluster, stats clustering.Statistics) bool {
	n := len(d.params)
	totalSamples := left.SampleCount + right.SampleCount
	if totalSamples < n+1 || totalSamples < 2 {
		return false
	}

	ess := glyphtrain.EssentialDims(d.params)
	essentialN := len(ess)
	if essentialN == 0 || totalSamples-2 == 0 {
		return false
	}

	cov := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case d.params[i].NonEssential || d.params[j].NonEssential:
				if i == j {
					cov.Set(i, j, 1.0)
				} else {
					cov.Set(i, j, 0.0)
				}
			default:
				cov.Set(i, j, stats.Covariance.At(i, j))
			}
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(cov); err != nil {
		return false
	}

	delta := make([]float64, n)
	for _, i := range ess {
		delta[i] = left.Mean[i] - right.Mean[i]
	}

	tsq := 0.0
	for x := 0; x < n; x++ {
		temp := 0.0
		for y := 0; y < n; y++ {
			temp += inv.At(y, x) * delta[y]
		}
		tsq += delta[x] * temp
	}

	f := tsq * float64(totalSamples-essentialN-1) / (float64(totalSamples-2) * float64(essentialN))
	target := bucket.HotellingThreshold(essentialN, totalSamples, float64(cfg.MagicSamples))
	return f < target
}

func dimValues(samples [][]float64, i int) []float64 {
	out := make([]float64, len(samples))
	for s, sample := range samples {
		out[s] = sample[i]
	}
	return out
}

func (d *Distiller) makeSpherical(cluster *clustering.Cluster, stats clustering.Statistics, samples [][]float64, buckets *bucket.Buckets) *Prototype {
	stddev := math.Sqrt(stats.AvgVariance)
	for i, p := range d.params {
		if p.NonEssential {
			continue
		}
		bucket.FillBuckets(buckets, p, dimValues(samples, i), cluster.Mean[i], stddev)
		if !bucket.DistributionOK(buckets) {
			return nil
		}
	}
	return newSphericalProto(cluster, stats)
}

func (d *Distiller) makeElliptical(cluster *clustering.Cluster, stats clustering.Statistics, samples [][]float64, buckets *bucket.Buckets) *Prototype {
	for i, p := range d.params {
		if p.NonEssential {
			continue
		}
		stddev := math.Sqrt(floorVariance(stats.Covariance.At(i, i)))
		bucket.FillBuckets(buckets, p, dimValues(samples, i), cluster.Mean[i], stddev)
		if !bucket.DistributionOK(buckets) {
			return nil
		}
	}
	return newEllipticalProto(cluster, stats)
}

// makeMixed tries, per dimension, Normal then Random then Uniform, in that
// order, falling back to the next only when the previous fit fails the
// goodness-of-fit test; the whole cluster is discarded (nil) as soon as any
// one essential dimension fits none of the three.
func (d *Distiller) makeMixed(cfg config.ClusterConfig, cluster *clustering.Cluster, stats clustering.Statistics, samples [][]float64, normalBuckets *bucket.Buckets) *Prototype {
	proto := newMixedProto(cluster, stats)
	var randomBuckets, uniformBuckets *bucket.Buckets

	n := len(d.params)
	i := 0
	for ; i < n; i++ {
		p := d.params[i]
		if p.NonEssential {
			continue
		}

		stddev := math.Sqrt(proto.Variance[i])
		bucket.FillBuckets(normalBuckets, p, dimValues(samples, i), proto.Mean[i], stddev)
		if bucket.DistributionOK(normalBuckets) {
			continue
		}

		if randomBuckets == nil {
			randomBuckets = d.buckets.Get(bucket.Random, uint32(cluster.SampleCount), cfg.Confidence)
		}
		makeDimRandom(proto, i, p)
		bucket.FillBuckets(randomBuckets, p, dimValues(samples, i), proto.Mean[i], proto.Variance[i])
		if bucket.DistributionOK(randomBuckets) {
			continue
		}

		if uniformBuckets == nil {
			uniformBuckets = d.buckets.Get(bucket.Uniform, uint32(cluster.SampleCount), cfg.Confidence)
		}
		makeDimUniform(proto, i, cluster.Mean[i], stats)
		bucket.FillBuckets(uniformBuckets, p, dimValues(samples, i), proto.Mean[i], proto.Variance[i])
		if bucket.DistributionOK(uniformBuckets) {
			continue
		}
		break
	}
	if i < n {
		return nil
	}
	return proto
}
