package posture

import (
	"fmt"
	"math"
)

// Category is a discrete posture classification.
type Category string

const (
	// Lying means the person is flat in bed.
	Lying Category = "LYING"
	// Sitting means the torso is upright with hips well below shoulders.
	Sitting Category = "SITTING"
	// Propped means the person is raised on an elbow or pillows.
	Propped Category = "PROPPED"
	// Transitioning covers every posture between the stable categories.
	Transitioning Category = "TRANSITIONING"
)

// Bounds holds the classification thresholds. Angles are degrees in 0-180;
// vertical differences are in normalized image units.
type Bounds struct {
	// FlatVDiff is the absolute vertical-difference band below which the
	// person is considered flat regardless of angle.
	FlatVDiff float64

	SittingAngleMin float64
	SittingAngleMax float64
	SittingVDiff    float64

	ProppedAngleMin float64
	ProppedAngleMax float64
	ProppedVDiff    float64

	// LyingAngleRanges are the angle bands that classify as lying when the
	// flat check does not apply, covering edge cases near 0 and 180 degrees.
	LyingAngleRanges [][2]float64

	// HysteresisAngle and HysteresisVDiff widen the admission bands of the
	// current stable category, so borderline frames cannot flip it.
	HysteresisAngle float64
	HysteresisVDiff float64
}

// DefaultBounds returns the classification thresholds used in production.
func DefaultBounds() Bounds {
	return Bounds{
		FlatVDiff:        0.10,
		SittingAngleMin:  70,
		SittingAngleMax:  115,
		SittingVDiff:     0.15,
		ProppedAngleMin:  30,
		ProppedAngleMax:  60,
		ProppedVDiff:     0.08,
		LyingAngleRanges: [][2]float64{{0, 25}, {155, 180}},
		HysteresisAngle:  10,
		HysteresisVDiff:  0.05,
	}
}

// Validate rejects bounds with angles outside 0-180 or inverted bands.
func (b Bounds) Validate() error {
	angles := map[string]float64{
		"sitting angle min": b.SittingAngleMin,
		"sitting angle max": b.SittingAngleMax,
		"propped angle min": b.ProppedAngleMin,
		"propped angle max": b.ProppedAngleMax,
	}
	for name, a := range angles {
		if a < 0 || a > 180 {
			return fmt.Errorf("%s %v outside 0-180", name, a)
		}
	}
	if b.SittingAngleMin > b.SittingAngleMax {
		return fmt.Errorf("sitting angle band inverted: %v > %v", b.SittingAngleMin, b.SittingAngleMax)
	}
	if b.ProppedAngleMin > b.ProppedAngleMax {
		return fmt.Errorf("propped angle band inverted: %v > %v", b.ProppedAngleMin, b.ProppedAngleMax)
	}
	for _, r := range b.LyingAngleRanges {
		if r[0] < 0 || r[1] > 180 || r[0] > r[1] {
			return fmt.Errorf("lying angle range [%v, %v] invalid", r[0], r[1])
		}
	}
	if b.FlatVDiff < 0 || b.SittingVDiff < 0 || b.ProppedVDiff < 0 {
		return fmt.Errorf("vertical-difference thresholds must not be negative")
	}
	if b.HysteresisAngle < 0 || b.HysteresisVDiff < 0 {
		return fmt.Errorf("hysteresis margins must not be negative")
	}
	return nil
}

// Classify maps smoothed metrics to a posture category. When the previous
// category is a stable one (lying or sitting), its admission bands are
// widened first, so the metrics must move further away than the raw bands
// require before the category is allowed to change. All bounds are inclusive.
func (b Bounds) Classify(m SmoothedMetrics, previous Category) Category {
	switch previous {
	case Lying:
		if math.Abs(m.VerticalDiff) < b.FlatVDiff+b.HysteresisVDiff {
			return Lying
		}
		for _, r := range b.LyingAngleRanges {
			if r[0]-b.HysteresisAngle <= m.AngleDeg && m.AngleDeg <= r[1]+b.HysteresisAngle {
				return Lying
			}
		}
	case Sitting:
		if b.SittingAngleMin-b.HysteresisAngle <= m.AngleDeg &&
			m.AngleDeg <= b.SittingAngleMax+b.HysteresisAngle &&
			m.VerticalDiff > b.SittingVDiff-b.HysteresisVDiff {
			return Sitting
		}
	}

	return b.classify(m)
}

// classify applies the priority rules without hysteresis. The flat check
// comes first so rolling side to side while lying never reads as movement.
func (b Bounds) classify(m SmoothedMetrics) Category {
	if math.Abs(m.VerticalDiff) < b.FlatVDiff {
		return Lying
	}

	if b.SittingAngleMin <= m.AngleDeg && m.AngleDeg <= b.SittingAngleMax &&
		m.VerticalDiff > b.SittingVDiff {
		return Sitting
	}

	if b.ProppedAngleMin <= m.AngleDeg && m.AngleDeg <= b.ProppedAngleMax &&
		m.VerticalDiff > b.ProppedVDiff {
		return Propped
	}

	for _, r := range b.LyingAngleRanges {
		if r[0] <= m.AngleDeg && m.AngleDeg <= r[1] {
			return Lying
		}
	}

	return Transitioning
}
