package landing

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/pose"
)

var logf = monitoring.Subsystem("landing")

// Config holds analyzer parameters.
type Config struct {
	Detector            DetectorConfig
	Risk                RiskConfig
	MinDuration         time.Duration
	MaxDuration         time.Duration
	MinPeakVelocity     float64
	BufferSize          int // frames
	FPS                 float64
	VisibilityThreshold float64
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a TuningConfig. The buffer holds
// the configured duration at the capture frame rate.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	fps := cfg.GetCaptureFPS()
	return Config{
		Detector:            DetectorConfigFromTuning(cfg),
		Risk:                RiskConfigFromTuning(cfg),
		MinDuration:         cfg.GetMinLandingDuration(),
		MaxDuration:         cfg.GetMaxLandingDuration(),
		MinPeakVelocity:     cfg.GetMinPeakVelocity(),
		BufferSize:          int(math.Ceil(cfg.GetBufferDuration().Seconds() * fps)),
		FPS:                 fps,
		VisibilityThreshold: cfg.GetVisibilityThreshold(),
	}
}

// TrialMetrics are the per-landing measurements. Angles are degrees.
type TrialMetrics struct {
	LeftValgus        float64 `json:"left_valgus"`
	RightValgus       float64 `json:"right_valgus"`
	ValgusAsymmetry   float64 `json:"valgus_asymmetry"`
	TrunkLeanSagittal float64 `json:"trunk_lean_sagittal"`
	TrunkLeanFrontal  float64 `json:"trunk_lean_frontal"`
	LeftArmAbduction  float64 `json:"left_arm_abduction"`
	RightArmAbduction float64 `json:"right_arm_abduction"`
	ArmPositionValid  bool    `json:"arm_position_valid"`
	// LandingSymmetry is the mean ankle height difference across the
	// phase, a proxy for uneven force distribution.
	LandingSymmetry float64 `json:"landing_symmetry"`
	// InstabilityIndex is the mean per-frame centre-of-mass displacement
	// across the phase.
	InstabilityIndex float64 `json:"instability_index"`
	// Unmeasured names the metrics whose landmarks were not visible. Their
	// values are 0 and they contribute no risk factor.
	Unmeasured []string `json:"unmeasured,omitempty"`
}

// Metric names reported in TrialMetrics.Unmeasured.
const (
	MetricLeftValgus       = "left_valgus"
	MetricRightValgus      = "right_valgus"
	MetricValgusAsymmetry  = "valgus_asymmetry"
	MetricTrunkLean        = "trunk_lean"
	MetricLeftArm          = "left_arm_abduction"
	MetricRightArm         = "right_arm_abduction"
	MetricLandingSymmetry  = "landing_symmetry"
	MetricInstabilityIndex = "instability_index"
)

// Measured reports whether the named metric was computed.
func (m TrialMetrics) Measured(name string) bool {
	for _, u := range m.Unmeasured {
		if u == name {
			return false
		}
	}
	return true
}

// Trial is one validated landing. Trials are never mutated after creation.
type Trial struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id,omitempty"`
	Phase       Phase        `json:"phase"`
	Metrics     TrialMetrics `json:"metrics"`
	RiskScore   int          `json:"risk_score"`
	Risk        Risk         `json:"risk"`
	RiskFactors []string     `json:"risk_factors,omitempty"`
	// Confidence is the mean visibility percentage of the impact-frame
	// landmarks behind the measured metrics, 0 when none were measured.
	Confidence float64 `json:"confidence"`
}

// Analyzer buffers 3D frames, detects landings and produces trials.
type Analyzer struct {
	cfg      Config
	detector *Detector
	buf      *ring
	seq      int
	trials   []Trial

	// last frame with visible hips
	haveCOM  bool
	lastCOM  float64
	lastSeq  int
	lastTime int64
}

// NewAnalyzer returns an Analyzer with an empty buffer.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		detector: NewDetector(cfg.Detector),
		buf:      newRing(cfg.BufferSize),
	}
}

// State returns the detector state.
func (a *Analyzer) State() State { return a.detector.State() }

// Trials returns the validated trials so far, oldest first.
func (a *Analyzer) Trials() []Trial {
	out := make([]Trial, len(a.trials))
	copy(out, a.trials)
	return out
}

// Samples returns the buffered velocity samples, oldest first.
func (a *Analyzer) Samples() []Sample { return a.buf.snapshot() }

// Assessment summarises the trials so far.
func (a *Analyzer) Assessment() Assessment { return Assess(a.trials) }

// Reset clears the buffer, the detector and the trial list.
func (a *Analyzer) Reset() {
	a.buf.reset()
	a.detector.Reset()
	a.trials = nil
	a.seq = 0
	a.haveCOM = false
}

// AddFrame appends one 3D frame and returns a trial when the frame ends a
// valid landing. A frame whose hips are not visible is marked occluded and
// holds the previous height and velocity; the next visible frame measures
// its velocity from the last visible one.
func (a *Analyzer) AddFrame(f pose.Frame) *Trial {
	seq := a.seq
	a.seq++

	s := Sample{Seq: seq, Timestamp: f.Timestamp, Frame: f}
	if f.Visible(a.cfg.VisibilityThreshold, pose.LeftHip, pose.RightHip) {
		s.COM = f.HipMid().Y
		if a.haveCOM {
			dt := time.Duration(f.Timestamp - a.lastTime).Seconds()
			if dt <= 0 && a.cfg.FPS > 0 {
				dt = float64(seq-a.lastSeq) / a.cfg.FPS
			}
			if dt > 0 {
				s.Velocity = (s.COM - a.lastCOM) / dt
			}
		}
		a.haveCOM, a.lastCOM, a.lastSeq, a.lastTime = true, s.COM, seq, f.Timestamp
	} else {
		s.Occluded = true
		if prev := a.buf.last(); prev != nil {
			s.COM, s.Velocity = prev.COM, prev.Velocity
		}
	}
	a.buf.push(s)

	phase := a.detector.Push(seq, s.Velocity, f.Timestamp)
	if phase == nil {
		return nil
	}
	if !a.validPhase(*phase) {
		return nil
	}
	trial := a.buildTrial(*phase)
	a.trials = append(a.trials, trial)
	logf("trial %s: frames %d-%d impact %d risk %s (%d)",
		trial.ID, phase.Start, phase.End, phase.Impact, trial.Risk, trial.RiskScore)
	return &trial
}

func (a *Analyzer) validPhase(p Phase) bool {
	if p.Duration < a.cfg.MinDuration || p.Duration > a.cfg.MaxDuration {
		logf("landing %d-%d discarded: duration %v outside [%v, %v]",
			p.Start, p.End, p.Duration, a.cfg.MinDuration, a.cfg.MaxDuration)
		return false
	}
	if math.Abs(p.MaxVelocity) <= a.cfg.MinPeakVelocity {
		logf("landing %d-%d discarded: peak velocity %.3f", p.Start, p.End, p.MaxVelocity)
		return false
	}
	return true
}

func (a *Analyzer) buildTrial(p Phase) Trial {
	window := a.buf.rangeSeq(p.Start, p.End)
	var impact pose.Frame
	for _, s := range window {
		if s.Seq == p.Impact {
			impact = s.Frame
			break
		}
	}

	vis := a.cfg.VisibilityThreshold
	m, conf := ImpactMetrics(&impact, a.cfg.Risk, vis)
	var ok bool
	if m.LandingSymmetry, ok = landingSymmetry(window, vis); !ok {
		m.Unmeasured = append(m.Unmeasured, MetricLandingSymmetry)
	}
	if m.InstabilityIndex, ok = instabilityIndex(window, vis); !ok {
		m.Unmeasured = append(m.Unmeasured, MetricInstabilityIndex)
	}
	score, risk, factors := a.cfg.Risk.Classify(m)

	return Trial{
		ID:          uuid.NewString(),
		Phase:       p,
		Metrics:     m,
		RiskScore:   score,
		Risk:        risk,
		RiskFactors: factors,
		Confidence:  conf,
	}
}

// ImpactMetrics computes the single-frame trial metrics at the impact
// frame and their confidence as a percentage. Valgus is the frontal-plane
// deviation of the knee from straight. A metric whose landmarks are not all
// above threshold is left at 0 and listed in Unmeasured; arm position is
// judged on the measured arms only.
func ImpactMetrics(f *pose.Frame, rc RiskConfig, threshold float64) (TrialMetrics, float64) {
	var m TrialMetrics
	used := make(map[int]bool)
	measure := func(name string, idx ...int) bool {
		if !f.Visible(threshold, idx...) {
			m.Unmeasured = append(m.Unmeasured, name)
			return false
		}
		for _, i := range idx {
			used[i] = true
		}
		return true
	}
	valgus := func(hip, knee, ankle int) float64 {
		return 180 - geom.AngleBetween(f.Point(hip), f.Point(knee), f.Point(ankle), geom.PlaneFrontal)
	}

	leftOK := measure(MetricLeftValgus, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	if leftOK {
		m.LeftValgus = valgus(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	}
	rightOK := measure(MetricRightValgus, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	if rightOK {
		m.RightValgus = valgus(pose.RightHip, pose.RightKnee, pose.RightAnkle)
	}
	if leftOK && rightOK {
		m.ValgusAsymmetry = math.Abs(m.LeftValgus - m.RightValgus)
	} else {
		m.Unmeasured = append(m.Unmeasured, MetricValgusAsymmetry)
	}

	if measure(MetricTrunkLean, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip) {
		trunk := f.ShoulderMid().Sub(f.HipMid())
		m.TrunkLeanSagittal = geom.AngleFromVertical(trunk, geom.PlaneSagittal)
		m.TrunkLeanFrontal = geom.AngleFromVertical(trunk, geom.PlaneFrontal)
	}

	m.ArmPositionValid = true
	if measure(MetricLeftArm, pose.LeftHip, pose.LeftShoulder, pose.LeftElbow) {
		m.LeftArmAbduction = geom.AngleBetween(f.Point(pose.LeftHip), f.Point(pose.LeftShoulder), f.Point(pose.LeftElbow), geom.PlaneFrontal)
		m.ArmPositionValid = rc.ArmPositionValid(m.LeftArmAbduction)
	}
	if measure(MetricRightArm, pose.RightHip, pose.RightShoulder, pose.RightElbow) {
		m.RightArmAbduction = geom.AngleBetween(f.Point(pose.RightHip), f.Point(pose.RightShoulder), f.Point(pose.RightElbow), geom.PlaneFrontal)
		m.ArmPositionValid = m.ArmPositionValid && rc.ArmPositionValid(m.RightArmAbduction)
	}

	if len(used) == 0 {
		return m, 0
	}
	idx := make([]int, 0, len(used))
	for i := range used {
		idx = append(idx, i)
	}
	return m, f.Visibility(idx...) * 100
}

// landingSymmetry averages the ankle height difference over the frames
// where both ankles are visible.
func landingSymmetry(window []Sample, threshold float64) (float64, bool) {
	var diffs []float64
	for _, s := range window {
		if !s.Frame.Visible(threshold, pose.LeftAnkle, pose.RightAnkle) {
			continue
		}
		diffs = append(diffs, math.Abs(s.Frame.Landmarks[pose.LeftAnkle].Y-s.Frame.Landmarks[pose.RightAnkle].Y))
	}
	if len(diffs) == 0 {
		return 0, false
	}
	return stat.Mean(diffs, nil), true
}

// instabilityIndex is the hip-midpoint path length between visible frames
// divided by the number of frame steps it spans.
func instabilityIndex(window []Sample, threshold float64) (float64, bool) {
	var (
		path     float64
		steps    int
		last     *Sample
		measured bool
	)
	for i := range window {
		s := &window[i]
		if !s.Frame.Visible(threshold, pose.LeftHip, pose.RightHip) {
			continue
		}
		if last != nil {
			path += geom.Distance(s.Frame.HipMid(), last.Frame.HipMid())
			steps += s.Seq - last.Seq
			measured = true
		}
		last = s
	}
	if !measured || steps == 0 {
		return 0, measured
	}
	return path / float64(steps), true
}
