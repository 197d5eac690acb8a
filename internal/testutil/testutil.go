// Package testutil provides shared test utilities and fixtures.
//
// Fixtures describe a standing subject in metric, Y-up coordinates: X is
// lateral (subject's left positive) and Z is anterior. Fixtures are fully
// visible unless a helper lowers visibility.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/pose"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

var standing = map[int]geom.Vec3{
	pose.Nose:           {X: 0, Y: 1.70, Z: 0.05},
	pose.LeftEyeInner:   {X: 0.02, Y: 1.73, Z: 0.05},
	pose.LeftEye:        {X: 0.03, Y: 1.73, Z: 0.05},
	pose.LeftEyeOuter:   {X: 0.04, Y: 1.73, Z: 0.05},
	pose.RightEyeInner:  {X: -0.02, Y: 1.73, Z: 0.05},
	pose.RightEye:       {X: -0.03, Y: 1.73, Z: 0.05},
	pose.RightEyeOuter:  {X: -0.04, Y: 1.73, Z: 0.05},
	pose.LeftEar:        {X: 0.08, Y: 1.71, Z: 0},
	pose.RightEar:       {X: -0.08, Y: 1.71, Z: 0},
	pose.MouthLeft:      {X: 0.02, Y: 1.66, Z: 0.05},
	pose.MouthRight:     {X: -0.02, Y: 1.66, Z: 0.05},
	pose.LeftShoulder:   {X: 0.20, Y: 1.45, Z: 0},
	pose.RightShoulder:  {X: -0.20, Y: 1.45, Z: 0},
	pose.LeftElbow:      {X: 0.22, Y: 1.15, Z: 0},
	pose.RightElbow:     {X: -0.22, Y: 1.15, Z: 0},
	pose.LeftWrist:      {X: 0.23, Y: 0.90, Z: 0},
	pose.RightWrist:     {X: -0.23, Y: 0.90, Z: 0},
	pose.LeftPinky:      {X: 0.24, Y: 0.85, Z: 0},
	pose.RightPinky:     {X: -0.24, Y: 0.85, Z: 0},
	pose.LeftIndex:      {X: 0.23, Y: 0.84, Z: 0.01},
	pose.RightIndex:     {X: -0.23, Y: 0.84, Z: 0.01},
	pose.LeftThumb:      {X: 0.22, Y: 0.86, Z: 0.02},
	pose.RightThumb:     {X: -0.22, Y: 0.86, Z: 0.02},
	pose.LeftHip:        {X: 0.10, Y: 0.95, Z: 0},
	pose.RightHip:       {X: -0.10, Y: 0.95, Z: 0},
	pose.LeftKnee:       {X: 0.10, Y: 0.50, Z: 0},
	pose.RightKnee:      {X: -0.10, Y: 0.50, Z: 0},
	pose.LeftAnkle:      {X: 0.10, Y: 0.08, Z: 0},
	pose.RightAnkle:     {X: -0.10, Y: 0.08, Z: 0},
	pose.LeftHeel:       {X: 0.10, Y: 0.03, Z: -0.05},
	pose.RightHeel:      {X: -0.10, Y: 0.03, Z: -0.05},
	pose.LeftFootIndex:  {X: 0.10, Y: 0.02, Z: 0.15},
	pose.RightFootIndex: {X: -0.10, Y: 0.02, Z: 0.15},
}

// StandingFrame returns an upright pose with straight legs (hip, knee and
// ankle colinear on each side) and arms hanging. Every landmark has
// visibility 1.
func StandingFrame(timestamp int64) pose.Frame {
	var lm [pose.NumLandmarks]pose.Landmark
	for i := 0; i < pose.NumLandmarks; i++ {
		p := standing[i]
		lm[i] = pose.Landmark{X: p.X, Y: p.Y, Z: p.Z, Visibility: 1}
	}
	return pose.NewFrame(lm, timestamp)
}

// SetPoint moves landmark idx to p, keeping its visibility.
func SetPoint(f *pose.Frame, idx int, p geom.Vec3) {
	f.Landmarks[idx].X, f.Landmarks[idx].Y, f.Landmarks[idx].Z = p.X, p.Y, p.Z
}

// SetVisibility sets the visibility of the listed landmarks and refreshes
// the frame confidence.
func SetVisibility(f *pose.Frame, vis float64, idx ...int) {
	for _, i := range idx {
		f.Landmarks[i].Visibility = vis
	}
	f.Confidence = f.MeanVisibility()
}

// SetKneeAngle rotates the ankle (and foot points with it) about the knee
// in the sagittal plane so the hip-knee-ankle angle equals deg.
func SetKneeAngle(f *pose.Frame, left bool, deg float64) {
	hip, knee, ankle := pose.RightHip, pose.RightKnee, pose.RightAnkle
	heel, toe := pose.RightHeel, pose.RightFootIndex
	if left {
		hip, knee, ankle = pose.LeftHip, pose.LeftKnee, pose.LeftAnkle
		heel, toe = pose.LeftHeel, pose.LeftFootIndex
	}
	k := f.Point(knee)
	thighDir := f.Point(hip).Sub(k)
	shank := geom.Distance(k, f.Point(ankle))

	// Place the ankle at deg from the thigh direction, rotating forward in Z.
	up := thighDir.Scale(1 / thighDir.Norm())
	fwd := geom.Vec3{Z: 1}
	r := geom.DegToRad(deg)
	dir := up.Scale(math.Cos(r)).Add(fwd.Scale(math.Sin(r)))
	newAnkle := k.Add(dir.Scale(shank))

	delta := newAnkle.Sub(f.Point(ankle))
	SetPoint(f, ankle, newAnkle)
	SetPoint(f, heel, f.Point(heel).Add(delta))
	SetPoint(f, toe, f.Point(toe).Add(delta))
}

// Translate shifts every landmark by d.
func Translate(f *pose.Frame, d geom.Vec3) {
	for i := range f.Landmarks {
		SetPoint(f, i, f.Point(i).Add(d))
	}
}

// StereoRig returns two pinhole cameras (f = 800px, principal point
// (640, 360), 1280x720) looking down +Z from Z = -4m, the second offset by
// baseline meters along X. Image v grows downwards.
func StereoRig(baseline float64) (P1, P2 geom.Mat34) {
	const f, cx, cy, standoff = 800.0, 640.0, 360.0, 4.0
	P1 = geom.Mat34{
		{f, 0, cx, cx * standoff},
		{0, -f, cy, cy * standoff},
		{0, 0, 1, standoff},
	}
	P2 = geom.Mat34{
		{f, 0, cx, cx*standoff - f*baseline},
		{0, -f, cy, cy * standoff},
		{0, 0, 1, standoff},
	}
	return P1, P2
}

// ProjectFrame projects a metric 3D frame through P into a 2D frame in
// normalised image coordinates for an image of the given size. Visibility
// is carried over unchanged.
func ProjectFrame(t *testing.T, f pose.Frame, P geom.Mat34, width, height float64) pose.Frame {
	t.Helper()
	out := f
	for i := range f.Landmarks {
		p, ok := geom.ProjectPoint(P, f.Point(i))
		if !ok {
			t.Fatalf("landmark %d projects to infinity", i)
		}
		out.Landmarks[i].X = p.X / width
		out.Landmarks[i].Y = p.Y / height
		out.Landmarks[i].Z = 0
	}
	return out
}
