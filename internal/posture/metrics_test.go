package posture

import (
	"math"
	"testing"

	"github.com/seniorcare/nightwatchman/internal/detector"
)

func TestComputeRaw_Sitting(t *testing.T) {
	raw := ComputeRaw(detector.SittingPose())

	if math.Abs(raw.AngleDeg-90) > 1 {
		t.Errorf("AngleDeg = %f, want ~90", raw.AngleDeg)
	}
	if math.Abs(raw.VerticalDiff-0.32) > 0.01 {
		t.Errorf("VerticalDiff = %f, want ~0.32", raw.VerticalDiff)
	}
}

func TestComputeRaw_Lying(t *testing.T) {
	raw := ComputeRaw(detector.LyingPose())

	if math.Abs(raw.VerticalDiff) > 0.01 {
		t.Errorf("VerticalDiff = %f, want ~0", raw.VerticalDiff)
	}
	if raw.AngleDeg < 0 || raw.AngleDeg > 180 {
		t.Errorf("AngleDeg = %f, outside 0-180", raw.AngleDeg)
	}
}

func TestComputeRaw_AngleNormalized(t *testing.T) {
	// Shoulders to the left of and below the hips: atan2 yields a negative
	// angle that must be shifted into 0-180.
	pose := &detector.PoseLandmarks{
		LeftShoulder:  detector.PosePoint{X: 0.30, Y: 0.50, Confidence: 0.9},
		RightShoulder: detector.PosePoint{X: 0.30, Y: 0.50, Confidence: 0.9},
		LeftHip:       detector.PosePoint{X: 0.60, Y: 0.40, Confidence: 0.9},
		RightHip:      detector.PosePoint{X: 0.60, Y: 0.40, Confidence: 0.9},
	}

	raw := ComputeRaw(pose)
	if raw.AngleDeg < 0 || raw.AngleDeg > 180 {
		t.Errorf("AngleDeg = %f, outside 0-180", raw.AngleDeg)
	}
}

func TestSmoother_Average(t *testing.T) {
	s := NewSmoother()

	if s.Ready() {
		t.Error("empty smoother should not be ready")
	}

	s.Observe(RawMetrics{AngleDeg: 90, VerticalDiff: 0.30})
	s.Observe(RawMetrics{AngleDeg: 60, VerticalDiff: 0.15})

	got := s.Value()
	if math.Abs(got.AngleDeg-75) > 1e-9 {
		t.Errorf("AngleDeg = %f, want 75", got.AngleDeg)
	}
	if math.Abs(got.VerticalDiff-0.225) > 1e-9 {
		t.Errorf("VerticalDiff = %f, want 0.225", got.VerticalDiff)
	}
}

func TestSmoother_WindowEvictsOldest(t *testing.T) {
	s := NewSmoother()

	s.Observe(RawMetrics{AngleDeg: 180, VerticalDiff: 0.9})
	s.Observe(RawMetrics{AngleDeg: 30, VerticalDiff: 0.3})
	s.Observe(RawMetrics{AngleDeg: 60, VerticalDiff: 0.6})
	// Fourth sample pushes the first one out of the window.
	s.Observe(RawMetrics{AngleDeg: 90, VerticalDiff: 0.9})

	got := s.Value()
	if math.Abs(got.AngleDeg-60) > 1e-9 {
		t.Errorf("AngleDeg = %f, want 60 (mean of last 3)", got.AngleDeg)
	}
	if math.Abs(got.VerticalDiff-0.6) > 1e-9 {
		t.Errorf("VerticalDiff = %f, want 0.6 (mean of last 3)", got.VerticalDiff)
	}
}

func TestSmoother_HoldsValueWithoutNewSamples(t *testing.T) {
	s := NewSmoother()
	s.Observe(RawMetrics{AngleDeg: 90, VerticalDiff: 0.3})

	before := s.Value()
	// A missing-detection frame feeds nothing; the value must hold.
	after := s.Value()

	if before != after {
		t.Errorf("smoothed value changed without input: %+v != %+v", before, after)
	}
}
