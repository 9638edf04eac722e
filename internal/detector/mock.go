package detector

import (
	"gocv.io/x/gocv"
)

// MockPoseDetector is a test implementation of the PoseDetector interface.
// It allows tests to control the detection results.
type MockPoseDetector struct {
	pose *PoseLandmarks
	err  error
}

// NewMockPoseDetector creates a new MockPoseDetector instance.
func NewMockPoseDetector() *MockPoseDetector {
	return &MockPoseDetector{}
}

// SetPose sets the landmarks that will be returned by DetectPose.
// A nil pose means no person is visible.
func (m *MockPoseDetector) SetPose(pose *PoseLandmarks) {
	m.pose = pose
}

// SetError sets the error that will be returned by DetectPose.
func (m *MockPoseDetector) SetError(err error) {
	m.err = err
}

// DetectPose returns the pre-configured pose or error.
func (m *MockPoseDetector) DetectPose(frame *gocv.Mat) (*PoseLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockPoseDetector) Close() error {
	return nil
}

// MockHandDetector is a test implementation of the HandDetector interface.
type MockHandDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockHandDetector creates a new MockHandDetector instance.
func NewMockHandDetector() *MockHandDetector {
	return &MockHandDetector{}
}

// SetHands sets the hands that will be returned by DetectHands.
func (m *MockHandDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by DetectHands.
func (m *MockHandDetector) SetError(err error) {
	m.err = err
}

// DetectHands returns the pre-configured hands or error.
func (m *MockHandDetector) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockHandDetector) Close() error {
	return nil
}

// ThumbsUpLandmarks returns a preset HandLandmarks representing a deliberate
// thumbs up close to the camera. The thumb points straight up while the other
// four fingers are curled back toward the palm.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at the bottom of the hand
	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.85, Z: 0.0}

	// Thumb extended straight upward (Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.78, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.55, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.42, Z: 0.0}

	// Index finger curled (tip folds back toward the palm)
	landmarks.Points[IndexMCP] = Point3D{X: 0.54, Y: 0.62, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.54, Y: 0.55, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.60, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.64, Z: -0.02}

	// Middle finger curled
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.60, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.53, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.58, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.46, Y: 0.62, Z: -0.02}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.46, Y: 0.62, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.46, Y: 0.55, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.44, Y: 0.60, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.64, Z: -0.02}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.66, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.60, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.40, Y: 0.64, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.38, Y: 0.68, Z: -0.02}

	return landmarks
}

// ThumbsDownLandmarks returns a preset HandLandmarks representing a deliberate
// thumbs down close to the camera. The thumb points straight down while the
// other four fingers are curled.
func ThumbsDownLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at the top of the (inverted) hand
	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.25, Z: 0.0}

	// Thumb extended straight downward (Y increases going down)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.32, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.40, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.53, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.66, Z: 0.0}

	// Index finger curled
	landmarks.Points[IndexMCP] = Point3D{X: 0.54, Y: 0.46, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.54, Y: 0.53, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.48, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.44, Z: -0.02}

	// Middle finger curled
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.48, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.55, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.50, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.46, Y: 0.46, Z: -0.02}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.46, Y: 0.46, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.46, Y: 0.53, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.44, Y: 0.48, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.44, Z: -0.02}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.42, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.48, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.40, Y: 0.44, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.38, Y: 0.40, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm.
// All fingers are extended; neither thumb test should accept it.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.85, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.78, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.63, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.69, Y: 0.64, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.74, Y: 0.58, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.62, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.49, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.40, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.30, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.60, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.46, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.35, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.22, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.62, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.49, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.39, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.29, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.66, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.56, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.48, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.40, Z: 0.0}

	return landmarks
}

// ScaledHand returns a copy of hand with every landmark scaled around the
// wrist by the given factor. Factors below 1.0 simulate a hand further from
// the camera, shrinking its normalized size.
func ScaledHand(hand HandLandmarks, factor float64) HandLandmarks {
	scaled := hand
	wrist := hand.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		scaled.Points[i] = Point3D{
			X: wrist.X + (hand.Points[i].X-wrist.X)*factor,
			Y: wrist.Y + (hand.Points[i].Y-wrist.Y)*factor,
			Z: wrist.Z + (hand.Points[i].Z-wrist.Z)*factor,
		}
	}
	return scaled
}

// LyingPose returns body landmarks for a person lying flat, viewed from the
// side: shoulders and hips at the same height.
func LyingPose() *PoseLandmarks {
	return &PoseLandmarks{
		LeftShoulder:  PosePoint{X: 0.30, Y: 0.60, Confidence: 0.92},
		RightShoulder: PosePoint{X: 0.32, Y: 0.64, Confidence: 0.90},
		LeftHip:       PosePoint{X: 0.62, Y: 0.60, Confidence: 0.91},
		RightHip:      PosePoint{X: 0.64, Y: 0.64, Confidence: 0.89},
	}
}

// SittingPose returns body landmarks for a person sitting upright:
// shoulders well above the hips, torso near vertical.
func SittingPose() *PoseLandmarks {
	return &PoseLandmarks{
		LeftShoulder:  PosePoint{X: 0.48, Y: 0.30, Confidence: 0.93},
		RightShoulder: PosePoint{X: 0.52, Y: 0.30, Confidence: 0.92},
		LeftHip:       PosePoint{X: 0.48, Y: 0.62, Confidence: 0.90},
		RightHip:      PosePoint{X: 0.52, Y: 0.62, Confidence: 0.91},
	}
}

// ProppedPose returns body landmarks for a person propped up on an elbow:
// torso at roughly 40 degrees with a moderate vertical difference.
func ProppedPose() *PoseLandmarks {
	return &PoseLandmarks{
		LeftShoulder:  PosePoint{X: 0.38, Y: 0.42, Confidence: 0.88},
		RightShoulder: PosePoint{X: 0.42, Y: 0.44, Confidence: 0.87},
		LeftHip:       PosePoint{X: 0.53, Y: 0.54, Confidence: 0.90},
		RightHip:      PosePoint{X: 0.57, Y: 0.56, Confidence: 0.89},
	}
}
