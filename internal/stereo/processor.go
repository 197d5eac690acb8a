package stereo

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

var logf = monitoring.Subsystem("stereo")

// Config holds processor parameters.
type Config struct {
	VisibilityThreshold float64
	// ThighShankRatio is the expected thigh:shank length ratio and
	// ThighShankTolerance the deviation allowed before the knee is moved.
	ThighShankRatio     float64
	ThighShankTolerance float64
	// Decimals is the rounding precision applied to output coordinates.
	Decimals int
	// SmoothingAlpha is the weight of the previous output in the temporal
	// EMA. Zero disables it.
	SmoothingAlpha float64
	// FullWeightAngleDeg is the triangulation angle at and above which the
	// geometric confidence weight is 1.
	FullWeightAngleDeg float64
	// PerformanceWindow is the number of recent calls kept for timing stats.
	PerformanceWindow int
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		VisibilityThreshold: cfg.GetVisibilityThreshold(),
		ThighShankRatio:     cfg.GetThighShankRatio(),
		ThighShankTolerance: cfg.GetThighShankTolerance(),
		Decimals:            cfg.GetSmoothingDecimals(),
		SmoothingAlpha:      cfg.GetSmoothingAlpha(),
		FullWeightAngleDeg:  cfg.GetFullWeightTriangulationDeg(),
		PerformanceWindow:   cfg.GetPerformanceWindow(),
	}
}

// Result is the output of one Process3DPose call.
type Result struct {
	// Frame holds metric 3D landmarks. Landmarks that could not be
	// triangulated are {0,0,0} with zero visibility.
	Frame pose.Frame
	// Confidence is the aggregate triangulation confidence in [0,1].
	Confidence float64
	// PointErrors holds per-landmark triangulation failures.
	PointErrors    map[int]error
	ProcessingTime time.Duration
	Stats          PerformanceStats
}

// Processor triangulates landmark frame pairs. A Processor is owned by one
// capture stream and is not safe for concurrent use.
type Processor struct {
	cfg     Config
	calib   *Calibration
	clock   timeutil.Clock
	centre1 geom.Vec3
	centre2 geom.Vec3
	perf    *perfWindow
	prev    *[pose.NumLandmarks]pose.Landmark
}

// NewProcessor returns a Processor for calib. An uncalibrated rig yields
// a Processor whose every call fails with ErrNotCalibrated. A nil clock
// uses the real clock.
func NewProcessor(calib *Calibration, cfg Config, clock timeutil.Clock) (*Processor, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	p := &Processor{cfg: cfg, calib: calib, clock: clock, perf: newPerfWindow(cfg.PerformanceWindow)}
	if calib == nil || !calib.IsCalibrated {
		return p, nil
	}
	if err := calib.Validate(); err != nil {
		return nil, err
	}
	var err error
	if p.centre1, err = calib.Camera1.Center(); err != nil {
		return nil, err
	}
	if p.centre2, err = calib.Camera2.Center(); err != nil {
		return nil, err
	}
	return p, nil
}

// Calibration returns the rig calibration the processor was built with.
func (p *Processor) Calibration() *Calibration { return p.calib }

// Reset clears temporal smoothing state and timing history.
func (p *Processor) Reset() {
	p.prev = nil
	p.perf = newPerfWindow(p.cfg.PerformanceWindow)
}

// Process3DPose triangulates f1 (camera 1) and f2 (camera 2), both in
// normalised image coordinates, into a metric 3D frame stamped timestamp.
func (p *Processor) Process3DPose(f1, f2 *pose.Frame, timestamp int64) (*Result, error) {
	if p.calib == nil || !p.calib.IsCalibrated {
		return nil, ErrNotCalibrated
	}
	if f1 == nil || f2 == nil {
		return nil, fmt.Errorf("process 3D pose: missing frame")
	}
	start := p.clock.Now()

	w, h := float64(p.calib.ImageWidth), float64(p.calib.ImageHeight)
	P1, P2 := p.calib.Camera1.Projection, p.calib.Camera2.Projection

	var out [pose.NumLandmarks]pose.Landmark
	valid := make([]bool, pose.NumLandmarks)
	pointErrs := make(map[int]error)
	for i := 0; i < pose.NumLandmarks; i++ {
		l1, l2 := f1.Landmarks[i], f2.Landmarks[i]
		if l1.Visibility < p.cfg.VisibilityThreshold || l2.Visibility < p.cfg.VisibilityThreshold {
			continue
		}
		X, err := geom.Triangulate(
			geom.Point2{X: l1.X * w, Y: l1.Y * h},
			geom.Point2{X: l2.X * w, Y: l2.Y * h},
			P1, P2)
		if err != nil {
			pointErrs[i] = fmt.Errorf("landmark %d: %w", i, err)
			logf("landmark %d: triangulation failed: %v", i, err)
			continue
		}
		out[i] = pose.Landmark{X: X.X, Y: X.Y, Z: X.Z, Visibility: (l1.Visibility + l2.Visibility) / 2}
		valid[i] = true
	}

	p.constrainKnee(&out, valid, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	p.constrainKnee(&out, valid, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	p.smooth(&out, valid)

	conf := p.confidence(f1, f2, &out, valid)

	frame := pose.NewFrame(out, timestamp)
	elapsed := p.clock.Since(start)
	p.perf.add(elapsed)

	res := &Result{
		Frame:          frame,
		Confidence:     conf,
		ProcessingTime: elapsed,
		Stats:          p.perf.stats(),
	}
	if len(pointErrs) > 0 {
		res.PointErrors = pointErrs
	}
	return res, nil
}

// constrainKnee moves the knee onto the hip→ankle line at the expected
// thigh:shank ratio when the measured ratio is implausible.
func (p *Processor) constrainKnee(out *[pose.NumLandmarks]pose.Landmark, valid []bool, hip, knee, ankle int) {
	if !valid[hip] || !valid[knee] || !valid[ankle] {
		return
	}
	h, k, a := out[hip].Vec(), out[knee].Vec(), out[ankle].Vec()
	shank := geom.Distance(k, a)
	if shank == 0 {
		return
	}
	ratio := geom.Distance(h, k) / shank
	if math.Abs(ratio-p.cfg.ThighShankRatio) <= p.cfg.ThighShankTolerance {
		return
	}
	fixed := geom.Lerp(h, a, p.cfg.ThighShankRatio/(1+p.cfg.ThighShankRatio))
	out[knee].X, out[knee].Y, out[knee].Z = fixed.X, fixed.Y, fixed.Z
}

// smooth rounds coordinates and applies the optional EMA against the
// previous output.
func (p *Processor) smooth(out *[pose.NumLandmarks]pose.Landmark, valid []bool) {
	alpha := p.cfg.SmoothingAlpha
	for i := range out {
		if !valid[i] {
			continue
		}
		v := out[i].Vec()
		if alpha > 0 && p.prev != nil && p.prev[i].Visibility > 0 {
			v = p.prev[i].Vec().Scale(alpha).Add(v.Scale(1 - alpha))
		}
		v = geom.Round(v, p.cfg.Decimals)
		out[i].X, out[i].Y, out[i].Z = v.X, v.Y, v.Z
	}
	if alpha > 0 {
		prev := *out
		p.prev = &prev
	}
}

// confidence averages, over landmarks seen confidently by both cameras,
// the mean input visibility weighted by the triangulation angle.
func (p *Processor) confidence(f1, f2 *pose.Frame, out *[pose.NumLandmarks]pose.Landmark, valid []bool) float64 {
	var sum float64
	n := 0
	for i := range out {
		v1, v2 := f1.Landmarks[i].Visibility, f2.Landmarks[i].Visibility
		if !valid[i] || v1 <= p.cfg.VisibilityThreshold || v2 <= p.cfg.VisibilityThreshold {
			continue
		}
		sum += (v1 + v2) / 2 * p.geometricWeight(out[i].Vec())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// geometricWeight is the angle subtended at X by the two camera centres,
// relative to the full-weight angle and capped at 1.
func (p *Processor) geometricWeight(X geom.Vec3) float64 {
	angle := geom.AngleBetween(p.centre1, X, p.centre2, geom.PlaneNone)
	if p.cfg.FullWeightAngleDeg <= 0 {
		return 1
	}
	return math.Min(angle/p.cfg.FullWeightAngleDeg, 1)
}

// TriangulationAngle returns the angle in degrees subtended at X by the two
// camera centres.
func (p *Processor) TriangulationAngle(X geom.Vec3) float64 {
	return geom.AngleBetween(p.centre1, X, p.centre2, geom.PlaneNone)
}
