package landing

import (
	"time"

	"github.com/banshee-data/movement.screen/internal/config"
)

// State is the landing detector state.
type State int

const (
	StateIdle State = iota
	StateInLanding
)

func (s State) String() string {
	if s == StateInLanding {
		return "in_landing"
	}
	return "idle"
}

// Phase is one detected landing. Start, Impact and End are absolute frame
// sequence numbers; Impact is the frame of most negative velocity.
type Phase struct {
	Start       int           `json:"start"`
	Impact      int           `json:"impact"`
	End         int           `json:"end"`
	StartTime   int64         `json:"start_time"` // unix nanos
	EndTime     int64         `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	MaxVelocity float64       `json:"max_velocity"` // most negative vertical velocity
}

// Frames returns the number of frames spanned by the phase.
func (p Phase) Frames() int { return p.End - p.Start }

// DetectorConfig holds the state machine thresholds.
type DetectorConfig struct {
	// EnterVelocity starts a landing when velocity drops below it.
	EnterVelocity float64
	// ExitVelocity ends a landing when velocity rises above it, provided
	// MinFrames have elapsed since the start.
	ExitVelocity float64
	MinFrames    int
}

// DefaultDetectorConfig returns the detector defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfigFromTuning(config.EmptyTuningConfig())
}

// DetectorConfigFromTuning builds a DetectorConfig from a TuningConfig.
func DetectorConfigFromTuning(cfg *config.TuningConfig) DetectorConfig {
	return DetectorConfig{
		EnterVelocity: cfg.GetLandingEnterVelocity(),
		ExitVelocity:  cfg.GetLandingExitVelocity(),
		MinFrames:     cfg.GetLandingMinFrames(),
	}
}

// Detector is the idle/in-landing state machine over vertical velocity.
type Detector struct {
	cfg   DetectorConfig
	state State

	start     int
	startTime int64
	impact    int
	minV      float64
}

// NewDetector returns an idle Detector.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// State returns the current state.
func (d *Detector) State() State { return d.state }

// Reset returns the detector to idle, dropping any landing in progress.
func (d *Detector) Reset() { d.state = StateIdle }

// Push feeds one velocity sample and returns a phase when a landing ends.
// A landing that recovers before MinFrames have elapsed is dropped and the
// detector returns to idle.
func (d *Detector) Push(seq int, velocity float64, timestamp int64) *Phase {
	switch d.state {
	case StateIdle:
		if velocity < d.cfg.EnterVelocity {
			d.state = StateInLanding
			d.start, d.startTime = seq, timestamp
			d.impact, d.minV = seq, velocity
		}
		return nil

	case StateInLanding:
		if velocity < d.minV {
			d.impact, d.minV = seq, velocity
		}
		if velocity <= d.cfg.ExitVelocity {
			return nil
		}
		d.state = StateIdle
		if seq-d.start < d.cfg.MinFrames {
			logf("short dip dropped: frames %d-%d (%d < %d)", d.start, seq, seq-d.start, d.cfg.MinFrames)
			return nil
		}
		return &Phase{
			Start:       d.start,
			Impact:      d.impact,
			End:         seq,
			StartTime:   d.startTime,
			EndTime:     timestamp,
			Duration:    time.Duration(timestamp - d.startTime),
			MaxVelocity: d.minV,
		}
	}
	return nil
}
