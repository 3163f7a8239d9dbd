package merge

import "math"

// Tuning constants carried over from mergenf.cpp's once-global VAR
// declarations (training_angle_match_scale, training_similarity_midpoint,
// training_similarity_curl, training_tangent_bbox_pad,
// training_orthogonal_bbox_pad, training_angle_pad). The original exposed
// these as runtime-tunable globals; glyphtrain fixes them at their
// documented defaults since nothing in SPEC_FULL.md calls for re-tuning
// them per run.
const (
	angleMatchScale      = 1.0
	similarityMidpoint   = 0.0075
	similarityCurl       = 2.0
	tangentBBoxPad       = 0.5
	orthogonalBBoxPad    = 2.5
	anglePadDegrees      = 45.0
	picoFeatureLength    = 0.05
	maxLengthMismatch    = 2 * picoFeatureLength
	worstEvidence        = 0.0
)

// WorstMatchAllowed is the CompareProtos score a candidate must exceed for
// ProtoMerger to treat it as "close enough to merge" (spec.md §4.4 step 1).
const WorstMatchAllowed = 0.9

// evidenceOf converts a combined distance/angle similarity into an
// evidence score in (0, 1], matching mergenf.cpp's EvidenceOf.
func evidenceOf(similarity float64) float64 {
	similarity /= similarityMidpoint
	switch similarityCurl {
	case 3:
		similarity = similarity * similarity * similarity
	case 2:
		similarity = similarity * similarity
	default:
		similarity = math.Pow(similarity, similarityCurl)
	}
	return 1.0 / (1.0 + similarity)
}

// subfeatureEvidence scores how well a synthetic pico-feature at (x, y)
// oriented dir matches proto p, matching mergenf.cpp's SubfeatureEvidence.
func subfeatureEvidence(x, y, dir float64, p LineProto) float64 {
	dAngle := p.Angle - dir
	if dAngle < -0.5 {
		dAngle += 1.0
	}
	if dAngle > 0.5 {
		dAngle -= 1.0
	}
	dAngle *= angleMatchScale

	distance := p.A*x + p.B*y + p.C
	return evidenceOf(distance*distance + dAngle*dAngle)
}

// dummyFastMatch reports whether a synthetic pico-feature at (x, y)
// oriented dir would be matched by a fast-match table built from p,
// matching mergenf.cpp's DummyFastMatch.
func dummyFastMatch(x, y, dir float64, p LineProto) bool {
	maxAngleError := anglePadDegrees / 360.0
	angleError := math.Abs(p.Angle - dir)
	if angleError > 0.5 {
		angleError = 1.0 - angleError
	}
	if angleError > maxAngleError {
		return false
	}

	minX, maxX, minY, maxY := paddedBoundingBox(p, tangentBBoxPad*picoFeatureLength, orthogonalBBoxPad*picoFeatureLength)
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// paddedBoundingBox computes a bounding box enclosing p padded by
// tangentPad along p's orientation and orthogonalPad perpendicular to it,
// matching mergenf.cpp's ComputePaddedBoundingBox.
func paddedBoundingBox(p LineProto, tangentPad, orthogonalPad float64) (minX, maxX, minY, maxY float64) {
	length := p.Length/2.0 + tangentPad
	angle := p.Angle * 2.0 * math.Pi
	cosA := math.Abs(math.Cos(angle))
	sinA := math.Abs(math.Sin(angle))

	padX := math.Max(cosA*length, sinA*orthogonalPad)
	minX, maxX = p.X-padX, p.X+padX

	padY := math.Max(sinA*length, cosA*orthogonalPad)
	minY, maxY = p.Y-padY, p.Y+padY
	return
}

// CompareProtos estimates the worst evidence rating that would result if
// p1 were decomposed into pico-features and every one matched against p2,
// matching mergenf.cpp's CompareProtos. It returns 0 if the two protos
// can't plausibly be related (length mismatch, or either synthetic
// pico-feature falls outside p2's fast-match box).
func CompareProtos(p1, p2 LineProto) float64 {
	if math.Abs(p1.Length-p2.Length) > maxLengthMismatch {
		return 0.0
	}

	angle := p1.Angle * 2.0 * math.Pi
	half := p1.Length/2.0 - picoFeatureLength/2.0
	if half < 0 {
		half = 0
	}

	worst := 1.0 // WorstEvidence starts at 1.0 in the original (WORST_EVIDENCE)

	x1 := p1.X + math.Cos(angle)*half
	y1 := p1.Y + math.Sin(angle)*half
	if !dummyFastMatch(x1, y1, p1.Angle, p2) {
		return worstEvidence
	}
	if e := subfeatureEvidence(x1, y1, p1.Angle, p2); e < worst {
		worst = e
	}

	x2 := p1.X - math.Cos(angle)*half
	y2 := p1.Y - math.Sin(angle)*half
	if !dummyFastMatch(x2, y2, p1.Angle, p2) {
		return worstEvidence
	}
	if e := subfeatureEvidence(x2, y2, p1.Angle, p2); e < worst {
		worst = e
	}

	return worst
}
