package glyphtrain

import "testing"

func TestCircularDistanceWraps(t *testing.T) {
	p := ParamDesc{Circular: true, Min: 0, Max: 360}

	if got := p.CircularDistance(350, 10); got != 20 {
		t.Fatalf("CircularDistance(350, 10) = %v, want 20", got)
	}
	if got := p.CircularDistance(10, 350); got != 20 {
		t.Fatalf("CircularDistance(10, 350) = %v, want 20", got)
	}
}

func TestLinearDistanceNoWrap(t *testing.T) {
	p := ParamDesc{Min: -1, Max: 1}
	if got := p.CircularDistance(-0.9, 0.9); got != 1.8 {
		t.Fatalf("CircularDistance(-0.9, 0.9) = %v, want 1.8", got)
	}
}

func TestEssentialDims(t *testing.T) {
	params := []ParamDesc{
		{NonEssential: false},
		{NonEssential: true},
		{NonEssential: false},
	}
	got := EssentialDims(params)
	want := []int{0, 2}
	if len(got) != len(want) {
		t.Fatalf("EssentialDims = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EssentialDims = %v, want %v", got, want)
		}
	}
}
