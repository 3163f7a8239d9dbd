package merge

import (
	"math"
	"testing"

	"glyphtrain/distill"
)

func lp(x, y, length, angle float64) LineProto {
	p := LineProto{X: x, Y: y, Length: length, Angle: angle}
	FillABC(&p)
	return p
}

func TestFromPrototypeExtractsLeadingDims(t *testing.T) {
	proto := &distill.Prototype{Mean: []float64{1, 2, 0.5, 0.25, 99, 100}}
	got := FromPrototype(proto)
	if got.X != 1 || got.Y != 2 || got.Length != 0.5 || got.Angle != 0.25 {
		t.Fatalf("got %+v, want X=1 Y=2 Length=0.5 Angle=0.25", got)
	}
}

func TestCompareProtosIdenticalProtosScoreHigh(t *testing.T) {
	p := lp(0, 0, 0.1, 0)
	score := CompareProtos(p, p)
	if score < 0.99 {
		t.Errorf("CompareProtos(p, p) = %v, want close to 1.0", score)
	}
}

func TestCompareProtosLengthMismatchReturnsZero(t *testing.T) {
	p1 := lp(0, 0, 0.01, 0)
	p2 := lp(0, 0, 10.0, 0)
	if got := CompareProtos(p1, p2); got != 0 {
		t.Errorf("CompareProtos with large length mismatch = %v, want 0", got)
	}
}

func TestCompareProtosFarApartReturnsZero(t *testing.T) {
	p1 := lp(0, 0, 0.1, 0)
	p2 := lp(1000, 1000, 0.1, 0)
	if got := CompareProtos(p1, p2); got != 0 {
		t.Errorf("CompareProtos for distant protos = %v, want 0", got)
	}
}

func TestClassAddPageAppendsWhenNoMatch(t *testing.T) {
	c := NewClass()
	p1 := lp(0, 0, 0.1, 0)
	p2 := lp(1000, 1000, 0.1, 0)

	cfg := c.AddPage([]LineProto{p1, p2}, 7)
	if len(c.Protos) != 2 {
		t.Fatalf("len(Protos) = %d, want 2", len(c.Protos))
	}
	if !cfg.Test(0) || !cfg.Test(1) {
		t.Error("expected both proto bits set in the page's configuration")
	}
	fonts := c.FontSet()
	if len(fonts) != 1 || fonts[0] != 7 {
		t.Errorf("FontSet = %v, want [7]", fonts)
	}
}

func TestClassAddPageMergesCloseProtos(t *testing.T) {
	c := NewClass()
	p := lp(0, 0, 0.1, 0)
	c.AddPage([]LineProto{p}, 1)
	if len(c.Protos) != 1 {
		t.Fatalf("len(Protos) = %d, want 1", len(c.Protos))
	}

	nearlyIdentical := lp(1e-6, 0, 0.1, 0)
	c.AddPage([]LineProto{nearlyIdentical}, 2)
	if len(c.Protos) != 1 {
		t.Fatalf("len(Protos) after near-identical page = %d, want 1 (merged)", len(c.Protos))
	}
	if c.NumMerged[0] != 2 {
		t.Errorf("NumMerged[0] = %d, want 2", c.NumMerged[0])
	}
}

func TestClassAddPageRepeatedMergeConvergesToOriginalMean(t *testing.T) {
	c := NewClass()
	original := lp(0.25, -0.1, 0.2, 0.1)
	c.AddPage([]LineProto{original}, 1)

	for i := 0; i < 10; i++ {
		c.AddPage([]LineProto{original}, 1)
	}

	if len(c.Protos) != 1 {
		t.Fatalf("len(Protos) = %d, want 1", len(c.Protos))
	}
	if c.NumMerged[0] != 11 {
		t.Errorf("NumMerged[0] = %d, want 11", c.NumMerged[0])
	}
	got := c.Protos[0]
	if math.Abs(got.X-original.X) > 1e-7 || math.Abs(got.Y-original.Y) > 1e-7 {
		t.Errorf("merged proto = %+v, want close to original %+v", got, original)
	}
}

func TestNewClassFromProtosSeedsNumMergedToOne(t *testing.T) {
	p1 := lp(0, 0, 0.1, 0)
	p2 := lp(5, 5, 0.2, 0.25)
	c := NewClassFromProtos([]LineProto{p1, p2})

	if len(c.Protos) != 2 || c.NumMerged[0] != 1 || c.NumMerged[1] != 1 {
		t.Fatalf("NewClassFromProtos = %+v, want 2 protos each with NumMerged=1", c)
	}

	// A page re-submitting p1 nearly unchanged should merge into slot 0
	// rather than append, exactly as if p1 had arrived from a live page.
	c.AddPage([]LineProto{lp(1e-6, 0, 0.1, 0)}, 9)
	if len(c.Protos) != 2 {
		t.Fatalf("len(Protos) after merge = %d, want 2", len(c.Protos))
	}
	if c.NumMerged[0] != 2 {
		t.Errorf("NumMerged[0] = %d, want 2", c.NumMerged[0])
	}
}

func TestFillABCProducesUnitNormal(t *testing.T) {
	p := lp(3, 4, 1, 0.125) // 45 degrees
	normSq := p.A*p.A + p.B*p.B
	if math.Abs(normSq-1.0) > 1e-9 {
		t.Errorf("A^2+B^2 = %v, want 1", normSq)
	}
	// The proto's own center must lie on its line.
	onLine := p.A*p.X + p.B*p.Y + p.C
	if math.Abs(onLine) > 1e-9 {
		t.Errorf("A*X+B*Y+C = %v, want 0", onLine)
	}
}
