package metrics

import (
	"math"

	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/joints"
	"github.com/banshee-data/movement.screen/internal/pose"
)

// Metric ids. Each id has exactly one formula; tests may reuse an id with
// their own thresholds.
const (
	KneeValgus          = "knee_valgus"
	HipDepth            = "hip_depth"
	TorsoTibiaParallel  = "torso_tibia_parallel"
	ArmsOverhead        = "arms_overhead"
	PelvicTilt          = "pelvic_tilt"
	KneeSymmetry        = "knee_symmetry"
	StepHipFlexion      = "step_hip_flexion"
	StanceKneeExtension = "stance_knee_extension"
	PelvicLevel         = "pelvic_level"
	TrunkLean           = "trunk_lean"
	FrontKneeFlexion    = "front_knee_flexion"
	HandDistance        = "hand_distance"
	ShoulderSymmetry    = "shoulder_symmetry"
	LegRaiseAngle       = "leg_raise_angle"
	BodyAlignment       = "body_alignment"
	CoordinationTiming  = "coordination_timing"
	TrunkRotation       = "trunk_rotation"
)

// Input is everything a formula may read for one frame.
type Input struct {
	Frame  *pose.Frame
	Angles []joints.JointAngle
	// Reference is an optional start-position frame for metrics that
	// compare movement against where the trial began.
	Reference *pose.Frame
	// VisibilityThreshold gates direct landmark reads.
	VisibilityThreshold float64
}

// Formula computes a metric value and its confidence percentage. ok is
// false when the inputs are missing or not visible enough.
type Formula func(in *Input) (value, confidence float64, ok bool)

// Formulas is the registry of metric formulas by id.
var Formulas = map[string]Formula{
	KneeValgus:          kneeValgus,
	HipDepth:            hipDepth,
	TorsoTibiaParallel:  torsoTibiaParallel,
	ArmsOverhead:        armsOverhead,
	PelvicTilt:          pelvicTilt,
	KneeSymmetry:        bilateral(joints.LeftKnee, joints.RightKnee),
	StepHipFlexion:      stepHipFlexion,
	StanceKneeExtension: stanceKneeExtension,
	PelvicLevel:         pelvicLevel,
	TrunkLean:           trunkLean,
	FrontKneeFlexion:    frontKneeFlexion,
	HandDistance:        handDistance,
	ShoulderSymmetry:    bilateral(joints.LeftShoulder, joints.RightShoulder),
	LegRaiseAngle:       legRaiseAngle,
	BodyAlignment:       bodyAlignment,
	CoordinationTiming:  coordinationTiming,
	TrunkRotation:       trunkRotation,
}

// SymmetryIndex returns the relative left/right difference as a percentage
// of the larger magnitude. Two zeros are perfectly symmetric.
func SymmetryIndex(left, right float64) float64 {
	m := math.Max(math.Abs(left), math.Abs(right))
	if m == 0 {
		return 0
	}
	return math.Abs(left-right) / m * 100
}

// landmarks returns the mean visibility percentage of idx when all of them
// pass the visibility gate.
func (in *Input) landmarks(idx ...int) (float64, bool) {
	if in.Frame == nil || !in.Frame.Visible(in.VisibilityThreshold, idx...) {
		return 0, false
	}
	return in.Frame.Visibility(idx...) * 100, true
}

func (in *Input) angle(name string) (joints.JointAngle, bool) {
	return joints.Find(in.Angles, name)
}

// pick returns the angle from the available sides chosen by better, and
// the confidence of the chosen side.
func (in *Input) pick(left, right string, better func(a, b float64) bool) (float64, float64, bool) {
	l, lok := in.angle(left)
	r, rok := in.angle(right)
	switch {
	case lok && rok:
		if better(r.Angle, l.Angle) {
			return r.Angle, r.Confidence, true
		}
		return l.Angle, l.Confidence, true
	case lok:
		return l.Angle, l.Confidence, true
	case rok:
		return r.Angle, r.Confidence, true
	}
	return 0, 0, false
}

func larger(a, b float64) bool  { return a > b }
func smaller(a, b float64) bool { return a < b }

func kneeValgus(in *Input) (float64, float64, bool) {
	l, lok := in.angle(joints.LeftKnee)
	r, rok := in.angle(joints.RightKnee)
	switch {
	case lok && rok:
		lv, rv := math.Abs(l.Angle-90), math.Abs(r.Angle-90)
		if rv > lv {
			return rv, r.Confidence, true
		}
		return lv, l.Confidence, true
	case lok:
		return math.Abs(l.Angle - 90), l.Confidence, true
	case rok:
		return math.Abs(r.Angle - 90), r.Confidence, true
	}
	return 0, 0, false
}

func hipDepth(in *Input) (float64, float64, bool) {
	return in.pick(joints.LeftHip, joints.RightHip, larger)
}

func armsOverhead(in *Input) (float64, float64, bool) {
	return in.pick(joints.LeftShoulder, joints.RightShoulder, smaller)
}

func stepHipFlexion(in *Input) (float64, float64, bool) {
	return in.pick(joints.LeftHip, joints.RightHip, smaller)
}

func frontKneeFlexion(in *Input) (float64, float64, bool) {
	return in.pick(joints.LeftKnee, joints.RightKnee, smaller)
}

// stanceKneeExtension reads the knee of the leg whose ankle is lowest.
func stanceKneeExtension(in *Input) (float64, float64, bool) {
	if _, ok := in.landmarks(pose.LeftAnkle, pose.RightAnkle); ok {
		name := joints.LeftKnee
		if in.Frame.Landmarks[pose.RightAnkle].Y < in.Frame.Landmarks[pose.LeftAnkle].Y {
			name = joints.RightKnee
		}
		if a, ok := in.angle(name); ok {
			return a.Angle, a.Confidence, true
		}
		return 0, 0, false
	}
	return in.pick(joints.LeftKnee, joints.RightKnee, larger)
}

func bodyAlignment(in *Input) (float64, float64, bool) {
	l, lok := in.angle(joints.LeftTorso)
	r, rok := in.angle(joints.RightTorso)
	switch {
	case lok && rok:
		return (l.Angle + r.Angle) / 2, (l.Confidence + r.Confidence) / 2, true
	case lok:
		return l.Angle, l.Confidence, true
	case rok:
		return r.Angle, r.Confidence, true
	}
	return 0, 0, false
}

func bilateral(left, right string) Formula {
	return func(in *Input) (float64, float64, bool) {
		l, lok := in.angle(left)
		r, rok := in.angle(right)
		if !lok || !rok {
			return 0, 0, false
		}
		return SymmetryIndex(l.Angle, r.Angle), math.Min(l.Confidence, r.Confidence), true
	}
}

var trunkPoints = []int{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip}

func trunkVector(f *pose.Frame) geom.Vec3 {
	return f.ShoulderMid().Sub(f.HipMid())
}

// pelvicTilt is the 3D angle of the hip-midpoint→shoulder-midpoint line
// from vertical.
func pelvicTilt(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(trunkPoints...)
	if !ok {
		return 0, 0, false
	}
	return geom.AngleFromVertical(trunkVector(in.Frame), geom.PlaneNone), conf, true
}

// trunkLean is the lateral (frontal-plane) lean of the trunk.
func trunkLean(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(trunkPoints...)
	if !ok {
		return 0, 0, false
	}
	return geom.AngleFromVertical(trunkVector(in.Frame), geom.PlaneFrontal), conf, true
}

func torsoTibiaParallel(in *Input) (float64, float64, bool) {
	idx := append([]int{pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle}, trunkPoints...)
	conf, ok := in.landmarks(idx...)
	if !ok {
		return 0, 0, false
	}
	f := in.Frame
	trunk := geom.AngleFromVertical(trunkVector(f), geom.PlaneSagittal)
	left := geom.AngleFromVertical(f.Point(pose.LeftKnee).Sub(f.Point(pose.LeftAnkle)), geom.PlaneSagittal)
	right := geom.AngleFromVertical(f.Point(pose.RightKnee).Sub(f.Point(pose.RightAnkle)), geom.PlaneSagittal)
	return math.Abs(trunk - (left+right)/2), conf, true
}

// pelvicLevel is the elevation of the hip-to-hip line above horizontal.
func pelvicLevel(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(pose.LeftHip, pose.RightHip)
	if !ok {
		return 0, 0, false
	}
	f := in.Frame
	return geom.ElevationAngle(f.Point(pose.LeftHip).Sub(f.Point(pose.RightHip))), conf, true
}

// trunkRotation is the transverse-plane angle between the shoulder line
// and the hip line.
func trunkRotation(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(trunkPoints...)
	if !ok {
		return 0, 0, false
	}
	f := in.Frame
	shoulders := f.Point(pose.LeftShoulder).Sub(f.Point(pose.RightShoulder))
	hips := f.Point(pose.LeftHip).Sub(f.Point(pose.RightHip))
	return geom.LineAngle(shoulders, hips, geom.PlaneTransverse), conf, true
}

// handDistance is the wrist-to-wrist distance in shoulder widths.
func handDistance(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(pose.LeftWrist, pose.RightWrist, pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return 0, 0, false
	}
	f := in.Frame
	width := geom.Distance(f.Point(pose.LeftShoulder), f.Point(pose.RightShoulder))
	if width == 0 {
		return 0, 0, false
	}
	return geom.Distance(f.Point(pose.LeftWrist), f.Point(pose.RightWrist)) / width, conf, true
}

// legRaiseAngle is the sagittal angle between the two legs at the hip
// midpoint.
func legRaiseAngle(in *Input) (float64, float64, bool) {
	conf, ok := in.landmarks(pose.LeftHip, pose.RightHip, pose.LeftAnkle, pose.RightAnkle)
	if !ok {
		return 0, 0, false
	}
	f := in.Frame
	return geom.AngleBetween(f.Point(pose.LeftAnkle), f.HipMid(), f.Point(pose.RightAnkle), geom.PlaneSagittal), conf, true
}

// coordinationTiming measures how far the shoulders and hips have drifted
// apart vertically since the reference frame, in trunk lengths. A trunk
// that rises as one unit scores 0.
func coordinationTiming(in *Input) (float64, float64, bool) {
	if in.Reference == nil {
		return 0, 0, false
	}
	conf, ok := in.landmarks(trunkPoints...)
	if !ok || !in.Reference.Visible(in.VisibilityThreshold, trunkPoints...) {
		return 0, 0, false
	}
	ref := in.Reference
	trunk := geom.Distance(ref.ShoulderMid(), ref.HipMid())
	if trunk == 0 {
		return 0, 0, false
	}
	dShoulder := in.Frame.ShoulderMid().Y - ref.ShoulderMid().Y
	dHip := in.Frame.HipMid().Y - ref.HipMid().Y
	refConf := ref.Visibility(trunkPoints...) * 100
	return math.Abs(dShoulder-dHip) / trunk, math.Min(conf, refConf), true
}
