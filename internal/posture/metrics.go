// Package posture turns noisy per-frame body measurements into a stable
// posture classification and drives the sit-up alert state machine.
package posture

import (
	"math"

	"github.com/seniorcare/nightwatchman/internal/detector"
)

// SmoothingWindow is the number of valid samples averaged by the Smoother.
const SmoothingWindow = 3

// RawMetrics holds the per-frame torso measurements computed from the four
// body landmarks. Angle is normalized to 0-180 degrees; VerticalDiff is
// positive when the hips sit below the shoulders.
type RawMetrics struct {
	AngleDeg     float64
	VerticalDiff float64
}

// SmoothedMetrics is the moving average of the most recent valid RawMetrics.
type SmoothedMetrics struct {
	AngleDeg     float64
	VerticalDiff float64
}

// ComputeRaw calculates torso metrics from pose landmarks: the angle between
// the hip-midpoint to shoulder-midpoint vector and horizontal, and the signed
// vertical difference between hip and shoulder midpoints.
func ComputeRaw(pose *detector.PoseLandmarks) RawMetrics {
	shoulderMidX := (pose.LeftShoulder.X + pose.RightShoulder.X) / 2
	shoulderMidY := (pose.LeftShoulder.Y + pose.RightShoulder.Y) / 2
	hipMidX := (pose.LeftHip.X + pose.RightHip.X) / 2
	hipMidY := (pose.LeftHip.Y + pose.RightHip.Y) / 2

	torsoX := shoulderMidX - hipMidX
	torsoY := shoulderMidY - hipMidY

	angle := math.Atan2(torsoY, torsoX) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}

	return RawMetrics{
		AngleDeg:     angle,
		VerticalDiff: hipMidY - shoulderMidY,
	}
}

// Smoother maintains a fixed-size window of the last valid RawMetrics and
// exposes their arithmetic mean. Frames without a detection do not feed the
// window; the previous smoothed value simply holds.
type Smoother struct {
	samples [SmoothingWindow]RawMetrics
	next    int
	count   int
}

// NewSmoother creates an empty Smoother.
func NewSmoother() *Smoother {
	return &Smoother{}
}

// Observe adds a valid sample to the window, evicting the oldest when full.
func (s *Smoother) Observe(raw RawMetrics) {
	s.samples[s.next] = raw
	s.next = (s.next + 1) % SmoothingWindow
	if s.count < SmoothingWindow {
		s.count++
	}
}

// Ready reports whether at least one sample has been observed.
func (s *Smoother) Ready() bool {
	return s.count > 0
}

// Value returns the mean of the buffered samples, averaging angle and
// vertical difference independently. The zero value is returned before any
// sample has been observed.
func (s *Smoother) Value() SmoothedMetrics {
	if s.count == 0 {
		return SmoothedMetrics{}
	}

	var sumAngle, sumVDiff float64
	for i := 0; i < s.count; i++ {
		sumAngle += s.samples[i].AngleDeg
		sumVDiff += s.samples[i].VerticalDiff
	}

	return SmoothedMetrics{
		AngleDeg:     sumAngle / float64(s.count),
		VerticalDiff: sumVDiff / float64(s.count),
	}
}
