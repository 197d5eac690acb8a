// Package pose defines the landmark frame produced by the external pose
// detector and consumed by every analysis stage.
//
// Body landmark indices follow the MediaPipe Pose convention (33 points).
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
package pose

import (
	"github.com/banshee-data/movement.screen/internal/geom"
)

// Body landmark indices.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// DefaultVisibilityThreshold is the visibility a landmark must exceed before
// it is trusted.
const DefaultVisibilityThreshold = 0.5

// Landmark is one tracked anatomical point. Coordinates are either normalised
// image coordinates (detector output) or metric 3D (stereo output).
// Visibility is the detector's confidence in [0, 1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Vec returns the landmark position.
func (l Landmark) Vec() geom.Vec3 { return geom.Vec3{X: l.X, Y: l.Y, Z: l.Z} }

// Frame is one detector callback's worth of landmarks. Frames are treated
// as immutable once produced.
type Frame struct {
	Landmarks [NumLandmarks]Landmark `json:"landmarks"`
	LeftHand  []Landmark             `json:"left_hand,omitempty"`
	RightHand []Landmark             `json:"right_hand,omitempty"`
	Face      []Landmark             `json:"face,omitempty"`
	Timestamp int64                  `json:"timestamp"` // unix nanos
	// Confidence is the mean body-landmark visibility in [0, 1].
	Confidence float64 `json:"confidence"`
}

// NewFrame builds a frame from body landmarks and fills Confidence.
func NewFrame(landmarks [NumLandmarks]Landmark, timestamp int64) Frame {
	f := Frame{Landmarks: landmarks, Timestamp: timestamp}
	f.Confidence = f.MeanVisibility()
	return f
}

// Point returns the position of landmark idx.
func (f *Frame) Point(idx int) geom.Vec3 { return f.Landmarks[idx].Vec() }

// Visible reports whether every listed landmark has visibility strictly
// greater than threshold.
func (f *Frame) Visible(threshold float64, idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= NumLandmarks || f.Landmarks[i].Visibility <= threshold {
			return false
		}
	}
	return true
}

// EnsureConfidence computes Confidence from the visibilities when it is
// unset.
func (f *Frame) EnsureConfidence() {
	if f.Confidence == 0 {
		f.Confidence = f.MeanVisibility()
	}
}

// Visibility returns the mean visibility of the listed landmarks, or of all
// body landmarks when none are listed.
func (f *Frame) Visibility(idx ...int) float64 {
	if len(idx) == 0 {
		return f.MeanVisibility()
	}
	var sum float64
	for _, i := range idx {
		sum += f.Landmarks[i].Visibility
	}
	return sum / float64(len(idx))
}

// MeanVisibility returns the mean visibility over all body landmarks.
func (f *Frame) MeanVisibility() float64 {
	var sum float64
	for _, l := range f.Landmarks {
		sum += l.Visibility
	}
	return sum / NumLandmarks
}

// Midpoint returns the midpoint of landmarks a and b.
func (f *Frame) Midpoint(a, b int) geom.Vec3 {
	return geom.Midpoint(f.Point(a), f.Point(b))
}

// ShoulderMid returns the midpoint of the shoulders.
func (f *Frame) ShoulderMid() geom.Vec3 { return f.Midpoint(LeftShoulder, RightShoulder) }

// HipMid returns the midpoint of the hips, used as the centre-of-mass proxy.
func (f *Frame) HipMid() geom.Vec3 { return f.Midpoint(LeftHip, RightHip) }
