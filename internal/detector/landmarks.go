// Package detector provides pose and hand detection interfaces and landmark
// types for the Nightwatchman posture monitor.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in normalized image space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by the hand tracker.
// Coordinates are normalized to the frame, so distances between landmarks are
// already expressed as a fraction of frame size.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Size returns the normalized hand size: the distance from the wrist to the
// middle fingertip. Small values mean the hand is far from the camera.
func (h *HandLandmarks) Size() float64 {
	if h == nil {
		return 0
	}
	return distance3D(h.Points[Wrist], h.Points[MiddleTip])
}

// PosePoint is a single body landmark with its detection confidence.
type PosePoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// PoseLandmarks holds the four body landmarks the monitor uses: both
// shoulders and both hips.
type PoseLandmarks struct {
	LeftShoulder  PosePoint `json:"left_shoulder"`
	RightShoulder PosePoint `json:"right_shoulder"`
	LeftHip       PosePoint `json:"left_hip"`
	RightHip      PosePoint `json:"right_hip"`
}

// AvgConfidence returns the mean detection confidence of the four landmarks.
func (p *PoseLandmarks) AvgConfidence() float64 {
	if p == nil {
		return 0
	}
	return (p.LeftShoulder.Confidence + p.RightShoulder.Confidence +
		p.LeftHip.Confidence + p.RightHip.Confidence) / 4
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
