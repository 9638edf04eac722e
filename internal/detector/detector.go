package detector

import "gocv.io/x/gocv"

// PoseDetector extracts body landmarks from a video frame.
type PoseDetector interface {
	// DetectPose analyzes a frame and returns the body landmarks, or nil if
	// no person is detected. Absence of a person is not an error.
	DetectPose(frame *gocv.Mat) (*PoseLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// HandDetector extracts hand landmarks from a video frame.
type HandDetector interface {
	// DetectHands analyzes a frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	DetectHands(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the detection sidecar.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
