package clustering

import (
	"math"
	"testing"

	"glyphtrain"
)

func linearParams(n int) []glyphtrain.ParamDesc {
	params := make([]glyphtrain.ParamDesc, n)
	for i := range params {
		params[i] = glyphtrain.ParamDesc{Min: -10, Max: 10}
	}
	return params
}

func TestBuildProducesNMinusOneInteriorNodes(t *testing.T) {
	params := linearParams(2)
	b := NewBuilder(params)

	samples := [][]float64{{0, 0}, {1, 1}, {5, 5}, {5.1, 4.9}, {-3, 2}}
	for _, s := range samples {
		b.AddSample(s, 0)
	}

	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	arena := b.Arena()
	leaves := arena.LeafSamples(root)
	if len(leaves) != len(samples) {
		t.Fatalf("LeafSamples = %d, want %d", len(leaves), len(samples))
	}
	if arena.Get(root).SampleCount != len(samples) {
		t.Fatalf("root SampleCount = %d, want %d", arena.Get(root).SampleCount, len(samples))
	}

	interior := 0
	for i := 0; i < arena.Len(); i++ {
		if !arena.Get(i).IsLeaf() {
			interior++
		}
	}
	if interior != len(samples)-1 {
		t.Fatalf("interior node count = %d, want %d", interior, len(samples)-1)
	}
}

func TestAddSampleAfterBuildPanics(t *testing.T) {
	params := linearParams(1)
	b := NewBuilder(params)
	b.AddSample([]float64{0}, 0)
	b.AddSample([]float64{1}, 0)
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when adding a sample after Build")
		}
	}()
	b.AddSample([]float64{2}, 0)
}

func TestWeightedMeanIdempotence(t *testing.T) {
	params := linearParams(2)
	a := []float64{0, 0}
	bb := []float64{2, 2}
	c := []float64{4, 4}

	d := MergeMeans(params, a, 1, bb, 1)
	direct := MergeMeans(params, d, 2, c, 1)

	abc := MergeMeans(params, MergeMeans(params, a, 1, bb, 1), 2, c, 1)
	for i := range direct {
		if math.Abs(direct[i]-abc[i]) > 1e-12 {
			t.Fatalf("mismatch at %d: %v vs %v", i, direct[i], abc[i])
		}
	}

	// Three-way weighted average of a, b, c with equal weights should equal
	// (a+b+c)/3 per dimension.
	want := []float64{(a[0] + bb[0] + c[0]) / 3, (a[1] + bb[1] + c[1]) / 3}
	for i := range want {
		if math.Abs(direct[i]-want[i]) > 1e-9 {
			t.Fatalf("centroid[%d] = %v, want %v", i, direct[i], want[i])
		}
	}
}

func TestMergeMeansCircularShorterArc(t *testing.T) {
	params := []glyphtrain.ParamDesc{{Circular: true, Min: 0, Max: 360}}
	// 350 and 10 are 20 degrees apart the short way; straight averaging
	// would (incorrectly) produce 180.
	got := MergeMeans(params, []float64{350}, 1, []float64{10}, 1)
	if got[0] != 0 && math.Abs(got[0]-360) > 1e-9 {
		t.Fatalf("circular merge of 350,10 = %v, want ~0 (or 360)", got[0])
	}
}

func TestComputeStatisticsFloorsVariance(t *testing.T) {
	params := linearParams(1)
	samples := [][]float64{{5}, {5}, {5}}
	stats := ComputeStatistics(params, []float64{5}, samples)
	if stats.Variance(0) != MinVariance {
		t.Fatalf("Variance(0) = %v, want floor %v", stats.Variance(0), MinVariance)
	}
}

func TestComputeStatisticsCircularOffsets(t *testing.T) {
	params := []glyphtrain.ParamDesc{{Circular: true, Min: 0, Max: 360}}
	samples := [][]float64{{350}, {10}}
	stats := ComputeStatistics(params, []float64{0}, samples)
	// Offset of 350 from mean 0 should be -10 (shorter arc), not 350.
	if math.Abs(stats.Min[0]+10) > 1e-9 {
		t.Fatalf("Min[0] = %v, want -10", stats.Min[0])
	}
	if math.Abs(stats.Max[0]-10) > 1e-9 {
		t.Fatalf("Max[0] = %v, want 10", stats.Max[0])
	}
}
