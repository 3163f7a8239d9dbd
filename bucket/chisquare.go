package bucket

import "math"

// chiAccuracy bounds the error tolerated between the solver's estimate and
// the true chi-squared critical value.
const chiAccuracy = 0.01

// minAlpha keeps Solve from being asked for an alpha so small the series in
// chiArea can't represent it.
const minAlpha = 1e-200

// chiArea evaluates (area under the right tail of a chi-squared curve with
// dof degrees of freedom, from x to infinity) minus alpha. It is exact only
// for even dof, which is why DegreesOfFreedom always rounds up to even; the
// series comes from repeated integration by parts of the chi density
// (original_source/classify/cluster.cpp's ChiArea).
func chiArea(dof int, alpha, x float64) float64 {
	n := dof/2 - 1
	seriesTotal := 1.0
	denominator := 1.0
	powerOfX := 1.0
	for i := 1; i <= n; i++ {
		denominator *= 2 * float64(i)
		powerOfX *= x
		seriesTotal += powerOfX / denominator
	}
	return seriesTotal*math.Exp(-0.5*x) - alpha
}

// solve finds a root of f starting from initialGuess, using a secant-like
// iteration with an adaptively shrinking step for estimating the local
// slope. This only converges reliably when f has exactly one root between
// initialGuess and the solution and no extrema in between -- acceptable
// here because chiArea is monotonic decreasing in x for fixed dof.
func solve(f func(x float64) float64, initialGuess, accuracy float64) (float64, int) {
	const initialDelta = 0.1
	const deltaRatio = 0.1

	x := initialGuess
	delta := initialDelta
	lastPosX := math.MaxFloat32
	lastNegX := -math.MaxFloat32

	evals := 0
	eval := func(v float64) float64 {
		evals++
		return f(v)
	}

	fx := eval(x)
	for math.Abs(lastPosX-lastNegX) > accuracy {
		if fx < 0 {
			lastNegX = x
		} else {
			lastPosX = x
		}

		slope := (eval(x+delta) - fx) / delta
		xDelta := fx / slope
		x -= xDelta

		newDelta := math.Abs(xDelta) * deltaRatio
		if newDelta < delta {
			delta = newDelta
		}
		fx = eval(x)
	}
	return x, evals
}

// chiEntry is one memoized (alpha -> chiSquared) mapping for a fixed number
// of degrees of freedom.
type chiEntry struct {
	alpha      float64
	chiSquared float64
}

// ChiCache memoizes chi-squared critical values by (degrees of freedom,
// alpha), mirroring original_source/classify/cluster.cpp's per-dof lists of
// CHISTRUCT: once a value is solved for, it is never recomputed. evalCount
// tracks the total number of chiArea evaluations performed, so callers can
// confirm that a repeated lookup costs nothing.
type ChiCache struct {
	entries   map[int][]chiEntry
	evalCount int
}

// NewChiCache returns an empty chi-squared value cache.
func NewChiCache() *ChiCache {
	return &ChiCache{entries: make(map[int][]chiEntry)}
}

// EvalCount returns the number of chiArea evaluations performed across the
// lifetime of the cache.
func (c *ChiCache) EvalCount() int { return c.evalCount }

// ComputeChiSquared returns the chi-squared value that leaves a cumulative
// probability of alpha in the right tail of a chi-squared distribution with
// dof degrees of freedom (rounded up to even). Results are cached; a second
// call with the same (dof, alpha) performs no additional solving.
func (c *ChiCache) ComputeChiSquared(dof int, alpha float64) float64 {
	if alpha < minAlpha {
		alpha = minAlpha
	}
	if alpha > 1.0 {
		alpha = 1.0
	}
	if odd(dof) {
		dof++
	}

	for _, e := range c.entries[dof] {
		if e.alpha == alpha {
			return e.chiSquared
		}
	}

	x, evals := solve(func(x float64) float64 {
		return chiArea(dof, alpha, x)
	}, float64(dof), chiAccuracy)
	c.evalCount += evals

	c.entries[dof] = append(c.entries[dof], chiEntry{alpha: alpha, chiSquared: x})
	return x
}
