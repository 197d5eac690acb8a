package joints

import (
	"math"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/pose"
)

// JointAngle is one derived joint measurement. It is recomputed every frame
// and never mutated.
type JointAngle struct {
	Name   string           `json:"name"`
	Angle  float64          `json:"angle"` // degrees
	Points [3]pose.Landmark `json:"points"`
	Min    float64          `json:"min"`
	Max    float64          `json:"max"`
	// Normal is set when the angle lies inside [Min, Max]; Warning when it
	// lies outside but within the warning margin. Neither set means fail.
	Normal  bool `json:"normal"`
	Warning bool `json:"warning"`
	// Confidence is the mean visibility of the three points as a percentage.
	Confidence float64 `json:"confidence"`
	// Deviation is negative below Min, positive above Max, zero inside.
	Deviation float64 `json:"deviation"`
}

// Config holds the engine's gating and classification parameters.
type Config struct {
	VisibilityThreshold float64 // landmarks must exceed this to be used
	WarningMargin       float64 // degrees outside the band still counted as warning
}

// DefaultConfig returns engine configuration loaded from the canonical
// tuning defaults file.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		VisibilityThreshold: cfg.GetVisibilityThreshold(),
		WarningMargin:       cfg.GetJointWarningMargin(),
	}
}

// Engine computes joint angles over a fixed catalog.
type Engine struct {
	cfg     Config
	catalog []Definition
}

// NewEngine returns an Engine over the default Catalog.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, catalog: Catalog}
}

// NewEngineWithCatalog returns an Engine over a caller-supplied catalog.
func NewEngineWithCatalog(cfg Config, catalog []Definition) *Engine {
	return &Engine{cfg: cfg, catalog: catalog}
}

// Compute returns the joint angles for every catalog joint whose three
// landmarks are visible. Joints with insufficient visibility are omitted.
func (e *Engine) Compute(f *pose.Frame) []JointAngle {
	out := make([]JointAngle, 0, len(e.catalog))
	for _, d := range e.catalog {
		if !f.Visible(e.cfg.VisibilityThreshold, d.A, d.Vertex, d.B) {
			continue
		}
		out = append(out, e.measure(f, d))
	}
	return out
}

func (e *Engine) measure(f *pose.Frame, d Definition) JointAngle {
	a, v, b := f.Landmarks[d.A], f.Landmarks[d.Vertex], f.Landmarks[d.B]
	angle := geom.AngleBetween(a.Vec(), v.Vec(), b.Vec(), d.Plane)

	dev := BandDeviation(angle, d.Min, d.Max)
	normal := dev == 0
	warning := !normal && math.Abs(dev) <= e.cfg.WarningMargin

	conf := (a.Visibility + v.Visibility + b.Visibility) / 3 * 100
	if conf > 100 {
		conf = 100
	}

	return JointAngle{
		Name:       d.Name,
		Angle:      angle,
		Points:     [3]pose.Landmark{a, v, b},
		Min:        d.Min,
		Max:        d.Max,
		Normal:     normal,
		Warning:    warning,
		Confidence: conf,
		Deviation:  dev,
	}
}

// BandDeviation returns the signed distance of v outside [lo, hi]: negative
// below lo, positive above hi, zero inside.
func BandDeviation(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return v - lo
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

// Find returns the named angle from a computed list.
func Find(angles []JointAngle, name string) (JointAngle, bool) {
	for _, a := range angles {
		if a.Name == name {
			return a, true
		}
	}
	return JointAngle{}, false
}
