// Package glyphtrain holds the data model shared by every stage of the
// classifier-training pipeline: the per-dimension feature descriptors the
// kd-tree, clusterer, distiller, and merger all key off, and the error
// types the rest of the packages return.
package glyphtrain

// ParamDesc describes the semantics of a single dimension of the feature
// space: whether it wraps around (circular), and whether it participates
// in distance, independence, and distribution-fit computations at all
// (essential) or is carried purely for descriptive purposes.
type ParamDesc struct {
	Circular     bool
	NonEssential bool
	Min          float64
	Max          float64
}

// Range returns Max - Min.
func (p ParamDesc) Range() float64 {
	return p.Max - p.Min
}

// HalfRange returns half of Range, the maximum distance two values of this
// dimension can be apart once circular wraparound is taken into account.
func (p ParamDesc) HalfRange() float64 {
	return p.Range() / 2
}

// MidRange returns the midpoint between Min and Max.
func (p ParamDesc) MidRange() float64 {
	return (p.Min + p.Max) / 2
}

// Essential reports whether this dimension participates in distance and
// independence computations.
func (p ParamDesc) Essential() bool {
	return !p.NonEssential
}

// Wrap folds x into [Min, Max) for a circular dimension; it is a no-op for
// linear dimensions. Callers are responsible for supplying in-range values
// to begin with (spec invariant: circular coordinates obey Min <= x < Max);
// Wrap exists only to fold a value shifted by one period during distance
// computation, not to sanitize arbitrary input.
func (p ParamDesc) Wrap(x float64) float64 {
	if !p.Circular {
		return x
	}
	r := p.Range()
	if r <= 0 {
		return x
	}
	for x < p.Min {
		x += r
	}
	for x >= p.Max {
		x -= r
	}
	return x
}

// Delta returns the signed difference b-a for this dimension, adjusted for
// circular wraparound so that the result always lies in (-HalfRange,
// HalfRange] for circular dimensions (the shorter arc).
func (p ParamDesc) Delta(a, b float64) float64 {
	d := b - a
	if !p.Circular {
		return d
	}
	r := p.Range()
	if r <= 0 {
		return d
	}
	h := p.HalfRange()
	for d > h {
		d -= r
	}
	for d <= -h {
		d += r
	}
	return d
}

// CircularDistance returns the unsigned distance between a and b on this
// dimension: min(|delta|, range-|delta|) for circular dimensions, |a-b|
// for linear ones.
func (p ParamDesc) CircularDistance(a, b float64) float64 {
	d := p.Delta(a, b)
	if d < 0 {
		return -d
	}
	return d
}

// EssentialDims returns the indices of the essential dimensions in params,
// in order. Every component that cycles through dimensions (the kd-tree's
// level assignment, the independence test, the distribution fit) uses this
// same ordering so that "essential dimension i" means the same thing
// everywhere.
func EssentialDims(params []ParamDesc) []int {
	dims := make([]int, 0, len(params))
	for i, p := range params {
		if p.Essential() {
			dims = append(dims, i)
		}
	}
	return dims
}
