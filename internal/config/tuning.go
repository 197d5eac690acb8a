package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis thresholds.
// Every field is optional; the Get* accessors fall back to built-in defaults
// so partial files are safe.
type TuningConfig struct {
	// Joint angle engine
	VisibilityThreshold *float64 `json:"visibility_threshold,omitempty"`
	JointWarningMargin  *float64 `json:"joint_warning_margin_deg,omitempty"`

	// Landing detection
	LandingEnterVelocity *float64 `json:"landing_enter_velocity,omitempty"`
	LandingExitVelocity  *float64 `json:"landing_exit_velocity,omitempty"`
	LandingMinFrames     *int     `json:"landing_min_frames,omitempty"`
	MinLandingDuration   *string  `json:"min_landing_duration,omitempty"` // duration string like "100ms"
	MaxLandingDuration   *string  `json:"max_landing_duration,omitempty"`
	MinPeakVelocity      *float64 `json:"min_peak_velocity,omitempty"`
	BufferDuration       *string  `json:"buffer_duration,omitempty"`
	CaptureFPS           *float64 `json:"capture_fps,omitempty"`

	// Drop-jump risk thresholds
	KneeValgusRiskDeg    *float64 `json:"knee_valgus_risk_deg,omitempty"`
	ValgusAsymmetryDeg   *float64 `json:"valgus_asymmetry_deg,omitempty"`
	TrunkLeanSagittalDeg *float64 `json:"trunk_lean_sagittal_deg,omitempty"`
	TrunkLeanFrontalDeg  *float64 `json:"trunk_lean_frontal_deg,omitempty"`
	ArmAbductionMinDeg   *float64 `json:"arm_abduction_min_deg,omitempty"`
	ArmAbductionMaxDeg   *float64 `json:"arm_abduction_max_deg,omitempty"`
	InstabilityRiskIndex *float64 `json:"instability_risk_index,omitempty"`

	// Stereo processing
	ThighShankRatio            *float64 `json:"thigh_shank_ratio,omitempty"`
	ThighShankTolerance        *float64 `json:"thigh_shank_tolerance,omitempty"`
	SmoothingDecimals          *int     `json:"smoothing_decimals,omitempty"`
	SmoothingAlpha             *float64 `json:"smoothing_alpha,omitempty"`
	FullWeightTriangulationDeg *float64 `json:"full_weight_triangulation_deg,omitempty"`
	PerformanceWindow          *int     `json:"performance_window,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/fms/
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.VisibilityThreshold != nil {
		if *c.VisibilityThreshold < 0 || *c.VisibilityThreshold > 1 {
			return fmt.Errorf("visibility_threshold must be between 0 and 1, got %f", *c.VisibilityThreshold)
		}
	}
	if c.JointWarningMargin != nil && *c.JointWarningMargin < 0 {
		return fmt.Errorf("joint_warning_margin_deg must be non-negative, got %f", *c.JointWarningMargin)
	}

	// Landing enters on a steeper descent than it exits on.
	if c.GetLandingEnterVelocity() >= c.GetLandingExitVelocity() {
		return fmt.Errorf("landing_enter_velocity (%f) must be below landing_exit_velocity (%f)",
			c.GetLandingEnterVelocity(), c.GetLandingExitVelocity())
	}
	if c.LandingMinFrames != nil && *c.LandingMinFrames < 1 {
		return fmt.Errorf("landing_min_frames must be positive, got %d", *c.LandingMinFrames)
	}

	for name, v := range map[string]*string{
		"min_landing_duration": c.MinLandingDuration,
		"max_landing_duration": c.MaxLandingDuration,
		"buffer_duration":      c.BufferDuration,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	if c.GetMinLandingDuration() > c.GetMaxLandingDuration() {
		return fmt.Errorf("min_landing_duration %s exceeds max_landing_duration %s",
			c.GetMinLandingDuration(), c.GetMaxLandingDuration())
	}

	if c.CaptureFPS != nil && *c.CaptureFPS <= 0 {
		return fmt.Errorf("capture_fps must be positive, got %f", *c.CaptureFPS)
	}
	if c.GetArmAbductionMinDeg() > c.GetArmAbductionMaxDeg() {
		return fmt.Errorf("arm_abduction_min_deg must not exceed arm_abduction_max_deg")
	}
	if c.SmoothingAlpha != nil && (*c.SmoothingAlpha < 0 || *c.SmoothingAlpha >= 1) {
		return fmt.Errorf("smoothing_alpha must be in [0, 1), got %f", *c.SmoothingAlpha)
	}
	if c.SmoothingDecimals != nil && (*c.SmoothingDecimals < 0 || *c.SmoothingDecimals > 9) {
		return fmt.Errorf("smoothing_decimals must be in [0, 9], got %d", *c.SmoothingDecimals)
	}
	if c.PerformanceWindow != nil && *c.PerformanceWindow < 1 {
		return fmt.Errorf("performance_window must be positive, got %d", *c.PerformanceWindow)
	}

	return nil
}

// GetVisibilityThreshold returns the visibility_threshold value or the default.
func (c *TuningConfig) GetVisibilityThreshold() float64 {
	if c.VisibilityThreshold == nil {
		return 0.5
	}
	return *c.VisibilityThreshold
}

// GetJointWarningMargin returns the joint_warning_margin_deg value or the default.
func (c *TuningConfig) GetJointWarningMargin() float64 {
	if c.JointWarningMargin == nil {
		return 5.0
	}
	return *c.JointWarningMargin
}

// GetLandingEnterVelocity returns the landing_enter_velocity value or the default.
func (c *TuningConfig) GetLandingEnterVelocity() float64 {
	if c.LandingEnterVelocity == nil {
		return -0.8
	}
	return *c.LandingEnterVelocity
}

// GetLandingExitVelocity returns the landing_exit_velocity value or the default.
func (c *TuningConfig) GetLandingExitVelocity() float64 {
	if c.LandingExitVelocity == nil {
		return -0.2
	}
	return *c.LandingExitVelocity
}

// GetLandingMinFrames returns the landing_min_frames value or the default.
func (c *TuningConfig) GetLandingMinFrames() int {
	if c.LandingMinFrames == nil {
		return 15
	}
	return *c.LandingMinFrames
}

// GetMinLandingDuration parses and returns MinLandingDuration.
func (c *TuningConfig) GetMinLandingDuration() time.Duration {
	return parseDurationOr(c.MinLandingDuration, 100*time.Millisecond)
}

// GetMaxLandingDuration parses and returns MaxLandingDuration.
func (c *TuningConfig) GetMaxLandingDuration() time.Duration {
	return parseDurationOr(c.MaxLandingDuration, 500*time.Millisecond)
}

// GetBufferDuration parses and returns BufferDuration.
func (c *TuningConfig) GetBufferDuration() time.Duration {
	return parseDurationOr(c.BufferDuration, 5*time.Second)
}

// GetMinPeakVelocity returns the min_peak_velocity value or the default.
func (c *TuningConfig) GetMinPeakVelocity() float64 {
	if c.MinPeakVelocity == nil {
		return 0.5
	}
	return *c.MinPeakVelocity
}

// GetCaptureFPS returns the capture_fps value or the default.
func (c *TuningConfig) GetCaptureFPS() float64 {
	if c.CaptureFPS == nil {
		return 30
	}
	return *c.CaptureFPS
}

// GetKneeValgusRiskDeg returns the knee_valgus_risk_deg value or the default.
func (c *TuningConfig) GetKneeValgusRiskDeg() float64 {
	if c.KneeValgusRiskDeg == nil {
		return 15
	}
	return *c.KneeValgusRiskDeg
}

// GetValgusAsymmetryDeg returns the valgus_asymmetry_deg value or the default.
func (c *TuningConfig) GetValgusAsymmetryDeg() float64 {
	if c.ValgusAsymmetryDeg == nil {
		return 10
	}
	return *c.ValgusAsymmetryDeg
}

// GetTrunkLeanSagittalDeg returns the trunk_lean_sagittal_deg value or the default.
func (c *TuningConfig) GetTrunkLeanSagittalDeg() float64 {
	if c.TrunkLeanSagittalDeg == nil {
		return 30
	}
	return *c.TrunkLeanSagittalDeg
}

// GetTrunkLeanFrontalDeg returns the trunk_lean_frontal_deg value or the default.
func (c *TuningConfig) GetTrunkLeanFrontalDeg() float64 {
	if c.TrunkLeanFrontalDeg == nil {
		return 10
	}
	return *c.TrunkLeanFrontalDeg
}

// GetArmAbductionMinDeg returns the arm_abduction_min_deg value or the default.
func (c *TuningConfig) GetArmAbductionMinDeg() float64 {
	if c.ArmAbductionMinDeg == nil {
		return 35
	}
	return *c.ArmAbductionMinDeg
}

// GetArmAbductionMaxDeg returns the arm_abduction_max_deg value or the default.
func (c *TuningConfig) GetArmAbductionMaxDeg() float64 {
	if c.ArmAbductionMaxDeg == nil {
		return 55
	}
	return *c.ArmAbductionMaxDeg
}

// GetInstabilityRiskIndex returns the instability_risk_index value or the default.
func (c *TuningConfig) GetInstabilityRiskIndex() float64 {
	if c.InstabilityRiskIndex == nil {
		return 0.5
	}
	return *c.InstabilityRiskIndex
}

// GetThighShankRatio returns the thigh_shank_ratio value or the default.
func (c *TuningConfig) GetThighShankRatio() float64 {
	if c.ThighShankRatio == nil {
		return 1.1
	}
	return *c.ThighShankRatio
}

// GetThighShankTolerance returns the thigh_shank_tolerance value or the default.
func (c *TuningConfig) GetThighShankTolerance() float64 {
	if c.ThighShankTolerance == nil {
		return 0.3
	}
	return *c.ThighShankTolerance
}

// GetSmoothingDecimals returns the smoothing_decimals value or the default.
func (c *TuningConfig) GetSmoothingDecimals() int {
	if c.SmoothingDecimals == nil {
		return 3
	}
	return *c.SmoothingDecimals
}

// GetSmoothingAlpha returns the smoothing_alpha value or the default (0 disables EMA).
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0
	}
	return *c.SmoothingAlpha
}

// GetFullWeightTriangulationDeg returns the full_weight_triangulation_deg value or the default.
func (c *TuningConfig) GetFullWeightTriangulationDeg() float64 {
	if c.FullWeightTriangulationDeg == nil {
		return 30
	}
	return *c.FullWeightTriangulationDeg
}

// GetPerformanceWindow returns the performance_window value or the default.
func (c *TuningConfig) GetPerformanceWindow() int {
	if c.PerformanceWindow == nil {
		return 30
	}
	return *c.PerformanceWindow
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}
