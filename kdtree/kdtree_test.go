package kdtree

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"glyphtrain"
)

func linearParams(n int) []glyphtrain.ParamDesc {
	params := make([]glyphtrain.ParamDesc, n)
	for i := range params {
		params[i] = glyphtrain.ParamDesc{Min: -100, Max: 100}
	}
	return params
}

func bruteForce(points [][]float64, params []glyphtrain.ParamDesc, query []float64, k int) []float64 {
	dims := glyphtrain.EssentialDims(params)
	dists := make([]float64, len(points))
	for i, p := range points {
		var sum float64
		for _, d := range dims {
			delta := params[d].CircularDistance(query[d], p[d])
			sum += delta * delta
		}
		dists[i] = math.Sqrt(sum)
	}
	sort.Float64s(dists)
	if k > len(dists) {
		k = len(dists)
	}
	return dists[:k]
}

func TestKNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	params := linearParams(3)
	idx := New(params)

	var points [][]float64
	for i := 0; i < 200; i++ {
		p := []float64{rng.Float64()*200 - 100, rng.Float64()*200 - 100, rng.Float64()*200 - 100}
		points = append(points, p)
		idx.Insert(p, i)
	}

	query := []float64{0, 0, 0}
	const k = 7
	got := idx.KNearest(query, k, 0)
	if len(got) != k {
		t.Fatalf("got %d neighbours, want %d", len(got), k)
	}

	want := bruteForce(points, params, query, k)
	for i := range want {
		if math.Abs(got[i].Distance-want[i]) > 1e-9 {
			t.Fatalf("distance[%d] = %v, want %v (full got=%v want=%v)", i, got[i].Distance, want[i], got, want)
		}
	}
}

func TestKNearestAfterDeletes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := linearParams(2)
	idx := New(params)

	var points [][]float64
	for i := 0; i < 100; i++ {
		p := []float64{rng.Float64()*200 - 100, rng.Float64()*200 - 100}
		points = append(points, p)
		idx.Insert(p, i)
	}

	// Delete every third point.
	var remaining [][]float64
	for i, p := range points {
		if i%3 == 0 {
			if !idx.Delete(p, i) {
				t.Fatalf("failed to delete point %d", i)
			}
			continue
		}
		remaining = append(remaining, p)
	}

	if idx.Len() != len(remaining) {
		t.Fatalf("Len() = %d, want %d", idx.Len(), len(remaining))
	}

	query := []float64{5, -5}
	const k = 5
	got := idx.KNearest(query, k, 0)
	want := bruteForce(remaining, params, query, k)
	for i := range want {
		if math.Abs(got[i].Distance-want[i]) > 1e-9 {
			t.Fatalf("after delete: distance[%d] = %v, want %v", i, got[i].Distance, want[i])
		}
	}
}

func TestCircularMetricWraps(t *testing.T) {
	params := []glyphtrain.ParamDesc{{Circular: true, Min: 0, Max: 360}}
	idx := New(params)
	idx.Insert([]float64{350}, 0)
	idx.Insert([]float64{180}, 1)

	got := idx.KNearest([]float64{10}, 1, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 neighbour, got %d", len(got))
	}
	if got[0].Data != 0 {
		t.Fatalf("expected nearest neighbour to be point 0 (350), got %d", got[0].Data)
	}
	if math.Abs(got[0].Distance-20) > 1e-9 {
		t.Fatalf("distance = %v, want 20", got[0].Distance)
	}
}

func TestNonEssentialDimensionIgnored(t *testing.T) {
	params := []glyphtrain.ParamDesc{
		{Min: -10, Max: 10},
		{Min: -10, Max: 10, NonEssential: true},
	}
	idx := New(params)
	idx.Insert([]float64{1, 1}, 0)
	idx.Insert([]float64{5, 5}, 1)

	before := idx.KNearest([]float64{0, 0}, 1, 0)

	idx2 := New(params)
	idx2.Insert([]float64{1, 999}, 0) // non-essential coordinate changed wildly
	idx2.Insert([]float64{5, 5}, 1)
	after := idx2.KNearest([]float64{0, 0}, 1, 0)

	if before[0].Data != after[0].Data || math.Abs(before[0].Distance-after[0].Distance) > 1e-9 {
		t.Fatalf("altering non-essential coordinate changed result: before=%v after=%v", before, after)
	}
}

func TestWalkVisitsAllNodes(t *testing.T) {
	params := linearParams(2)
	idx := New(params)
	for i := 0; i < 20; i++ {
		idx.Insert([]float64{float64(i), float64(-i)}, i)
	}

	seen := map[int]bool{}
	idx.Walk(func(data int, key []float64, level int) {
		seen[data] = true
	})
	if len(seen) != 20 {
		t.Fatalf("Walk visited %d nodes, want 20", len(seen))
	}
}
