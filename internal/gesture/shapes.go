// Package gesture recognizes caregiver hand gestures and debounces them into
// hold-confirmed control intents.
package gesture

import (
	"math"

	"github.com/seniorcare/nightwatchman/internal/detector"
)

// Shape test thresholds.
const (
	// minFoldedFingers is how many of the four non-thumb fingers must be
	// curled for a thumb gesture to count.
	minFoldedFingers = 2
	// foldedAngleMax is the PIP joint angle below which a finger is folded.
	foldedAngleMax = 120.0
	// maxVerticalDeviation is how far (degrees) the thumb may lean from
	// straight up or straight down.
	maxVerticalDeviation = 20.0
)

// Variant is a diagnostic hand-orientation classification. It never gates
// gesture validity; it exists purely for logging.
type Variant string

const (
	VariantNone Variant = ""
	VariantFist Variant = "fist"
	VariantPalm Variant = "palm"
	VariantBack Variant = "back"
)

// Evaluation is the per-frame geometric verdict on a hand.
type Evaluation struct {
	// HandPresent is false when no hand was detected or the hand failed the
	// deliberateness filter (too small, i.e. too far from the camera).
	HandPresent bool
	// Begin is true when the hand shows a valid thumbs up.
	Begin bool
	// Pause is true when the hand shows a valid thumbs down.
	Pause bool

	// Diagnostic fields.
	Variant     Variant
	FoldedCount int
	HandSize    float64
}

// Evaluate runs the shape tests on a detected hand. A nil hand means no hand
// was visible this frame. Hands smaller than minHandSize are treated as not
// present at all: a sleeping person's distant hand can never trigger a
// command, while a caregiver's raised hand close to the camera can.
func Evaluate(hand *detector.HandLandmarks, minHandSize float64) Evaluation {
	if hand == nil {
		return Evaluation{}
	}

	size := hand.Size()
	if size < minHandSize {
		return Evaluation{HandSize: size}
	}

	folded := foldedCount(hand)
	eval := Evaluation{
		HandPresent: true,
		FoldedCount: folded,
		HandSize:    size,
		Variant:     orientationVariant(hand, folded),
	}

	if folded >= minFoldedFingers {
		eval.Begin = thumbPointsUp(hand)
		if !eval.Begin {
			// The vertical tests are disjoint, so at most one of the two can
			// hold; begin wins if geometry somehow admits both.
			eval.Pause = thumbPointsDown(hand)
		}
	}

	return eval
}

// thumbPointsUp reports whether the thumb tip sits above both the thumb MCP
// and the index MCP and points near straight up.
func thumbPointsUp(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip]
	mcp := hand.Points[detector.ThumbMCP]
	indexMCP := hand.Points[detector.IndexMCP]

	if !(tip.Y < mcp.Y && tip.Y < indexMCP.Y) {
		return false
	}
	return thumbVerticalAngle(mcp, tip) <= maxVerticalDeviation
}

// thumbPointsDown reports whether the thumb tip sits below both base joints
// and points near straight down.
func thumbPointsDown(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip]
	mcp := hand.Points[detector.ThumbMCP]
	indexMCP := hand.Points[detector.IndexMCP]

	if !(tip.Y > mcp.Y && tip.Y > indexMCP.Y) {
		return false
	}
	return math.Abs(thumbVerticalAngle(mcp, tip)-180) <= maxVerticalDeviation
}

// thumbVerticalAngle measures the screen-space angle between the thumb
// direction and vertical: 0 degrees is straight up, 180 straight down.
// Depth is ignored.
func thumbVerticalAngle(base, tip detector.Point3D) float64 {
	dx := tip.X - base.X
	dy := tip.Y - base.Y

	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return 90 // undefined; treat as perpendicular
	}

	// Dot product with the up vector (0, -1) in image coordinates.
	cos := -dy / length
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// fingerJoints lists MCP, PIP, and tip indices for the four non-thumb fingers.
var fingerJoints = [4][3]int{
	{detector.IndexMCP, detector.IndexPIP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip},
	{detector.RingMCP, detector.RingPIP, detector.RingTip},
	{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip},
}

// foldedCount counts fingers whose PIP joint angle indicates a curl.
func foldedCount(hand *detector.HandLandmarks) int {
	count := 0
	for _, joints := range fingerJoints {
		a := angleAt(hand.Points[joints[0]], hand.Points[joints[1]], hand.Points[joints[2]])
		if a < foldedAngleMax {
			count++
		}
	}
	return count
}

// angleAt returns the angle in degrees at p2 formed by p1-p2-p3 in 3D.
func angleAt(p1, p2, p3 detector.Point3D) float64 {
	v1x, v1y, v1z := p1.X-p2.X, p1.Y-p2.Y, p1.Z-p2.Z
	v2x, v2y, v2z := p3.X-p2.X, p3.Y-p2.Y, p3.Z-p2.Z

	dot := v1x*v2x + v1y*v2y + v1z*v2z
	n1 := math.Sqrt(v1x*v1x + v1y*v1y + v1z*v1z)
	n2 := math.Sqrt(v2x*v2x + v2y*v2y + v2z*v2z)
	if n1 == 0 || n2 == 0 {
		return 0
	}

	cos := math.Max(-1, math.Min(1, dot/(n1*n2)))
	return math.Acos(cos) * 180 / math.Pi
}

// orientationVariant classifies the hand as fist, palm, or back of hand from
// the fold count and fingertip depth relative to the base joints.
func orientationVariant(hand *detector.HandLandmarks, folded int) Variant {
	if folded >= 3 {
		return VariantFist
	}

	tipZ := (hand.Points[detector.IndexTip].Z + hand.Points[detector.MiddleTip].Z +
		hand.Points[detector.RingTip].Z + hand.Points[detector.PinkyTip].Z) / 4
	mcpZ := (hand.Points[detector.IndexMCP].Z + hand.Points[detector.MiddleMCP].Z +
		hand.Points[detector.RingMCP].Z + hand.Points[detector.PinkyMCP].Z) / 4

	if tipZ > mcpZ+0.01 {
		return VariantBack
	}
	return VariantPalm
}
