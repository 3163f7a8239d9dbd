// Package merge folds a page's freshly distilled prototypes into a
// persistent per-class prototype library (spec.md §4.4), grounded on
// original_source/training/mergenf.cpp. Where distill.Prototype models a
// general n-dimensional statistical shape, merge works in the compact
// (x, y, length, angle) line-segment representation mergenf.cpp's
// CompareProtos compares pico-features against: the first four dimensions
// of a Prototype's mean, by the classic micro-feature convention.
package merge

import (
	"math"

	"glyphtrain/distill"
)

// lineDims is the number of leading Prototype.Mean dimensions a LineProto
// is extracted from: x, y, length, angle, matching mergenf.cpp's
// MakeNewFromOld (CenterX/CenterY/LengthOf/OrientationOf of Old->Mean).
const lineDims = 4

// LineProto is the compact per-proto representation ProtoMerger compares
// and merges: a line segment plus its precomputed implicit-line
// coefficients, mirroring original_source/training/mergenf.h's PROTO_STRUCT.
type LineProto struct {
	X, Y   float64
	Length float64
	Angle  float64 // normalized turns, not radians: 0..1 maps to 0..2π
	A, B, C float64 // unit-normal line coefficients: A*x + B*y + C = 0
}

// FillABC (re)derives a LineProto's implicit line coefficients from its
// X/Y/Angle, matching mergenf.cpp's FillABC (called after every
// construction or merge).
func FillABC(p *LineProto) {
	angle := p.Angle * 2.0 * math.Pi
	p.A = math.Sin(angle)
	p.B = -math.Cos(angle)
	p.C = -(p.A*p.X + p.B*p.Y)
}

// FromPrototype extracts a LineProto from a distilled Prototype's mean,
// reading dimensions [x, y, length, angle] in that order and deriving A/B/C,
// the Go analogue of mergenf.cpp's MakeNewFromOld.
func FromPrototype(p *distill.Prototype) LineProto {
	mean := p.Mean
	lp := LineProto{}
	if len(mean) > 0 {
		lp.X = mean[0]
	}
	if len(mean) > 1 {
		lp.Y = mean[1]
	}
	if len(mean) > 2 {
		lp.Length = mean[2]
	}
	if len(mean) > 3 {
		lp.Angle = mean[3]
	}
	FillABC(&lp)
	return lp
}

// computeMergedProto returns the weighted average of p1 and p2 (weights
// w1, w2), matching mergenf.cpp's ComputeMergedProto.
func computeMergedProto(p1, p2 LineProto, w1, w2 float64) LineProto {
	total := w1 + w2
	w1 /= total
	w2 /= total

	merged := LineProto{
		X:      p1.X*w1 + p2.X*w2,
		Y:      p1.Y*w1 + p2.Y*w2,
		Length: p1.Length*w1 + p2.Length*w2,
		Angle:  p1.Angle*w1 + p2.Angle*w2,
	}
	FillABC(&merged)
	return merged
}
