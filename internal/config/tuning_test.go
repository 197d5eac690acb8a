package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetVisibilityThreshold() != 0.5 {
		t.Errorf("GetVisibilityThreshold() = %f, want 0.5", cfg.GetVisibilityThreshold())
	}
	if cfg.GetJointWarningMargin() != 5 {
		t.Errorf("GetJointWarningMargin() = %f, want 5", cfg.GetJointWarningMargin())
	}
	if cfg.GetLandingEnterVelocity() != -0.8 {
		t.Errorf("GetLandingEnterVelocity() = %f, want -0.8", cfg.GetLandingEnterVelocity())
	}
	if cfg.GetLandingExitVelocity() != -0.2 {
		t.Errorf("GetLandingExitVelocity() = %f, want -0.2", cfg.GetLandingExitVelocity())
	}
	if cfg.GetLandingMinFrames() != 15 {
		t.Errorf("GetLandingMinFrames() = %d, want 15", cfg.GetLandingMinFrames())
	}
	if cfg.GetMinLandingDuration() != 100*time.Millisecond {
		t.Errorf("GetMinLandingDuration() = %v, want 100ms", cfg.GetMinLandingDuration())
	}
	if cfg.GetMaxLandingDuration() != 500*time.Millisecond {
		t.Errorf("GetMaxLandingDuration() = %v, want 500ms", cfg.GetMaxLandingDuration())
	}
	if cfg.GetBufferDuration() != 5*time.Second {
		t.Errorf("GetBufferDuration() = %v, want 5s", cfg.GetBufferDuration())
	}
	if cfg.GetThighShankRatio() != 1.1 {
		t.Errorf("GetThighShankRatio() = %f, want 1.1", cfg.GetThighShankRatio())
	}
	if cfg.GetSmoothingDecimals() != 3 {
		t.Errorf("GetSmoothingDecimals() = %d, want 3", cfg.GetSmoothingDecimals())
	}
	if cfg.GetPerformanceWindow() != 30 {
		t.Errorf("GetPerformanceWindow() = %d, want 30", cfg.GetPerformanceWindow())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "visibility_threshold": 0.6,
  "landing_min_frames": 10,
  "min_landing_duration": "80ms",
  "buffer_duration": "3s",
  "smoothing_alpha": 0.25
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetVisibilityThreshold(); got != 0.6 {
		t.Errorf("GetVisibilityThreshold() = %f, want 0.6", got)
	}
	if got := cfg.GetLandingMinFrames(); got != 10 {
		t.Errorf("GetLandingMinFrames() = %d, want 10", got)
	}
	if got := cfg.GetMinLandingDuration(); got != 80*time.Millisecond {
		t.Errorf("GetMinLandingDuration() = %v, want 80ms", got)
	}
	if got := cfg.GetBufferDuration(); got != 3*time.Second {
		t.Errorf("GetBufferDuration() = %v, want 3s", got)
	}
	if got := cfg.GetSmoothingAlpha(); got != 0.25 {
		t.Errorf("GetSmoothingAlpha() = %f, want 0.25", got)
	}
	// Omitted fields fall back to defaults.
	if got := cfg.GetCaptureFPS(); got != 30 {
		t.Errorf("GetCaptureFPS() = %f, want 30", got)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("config.yaml")
	if err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "visibility_threshold": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file does not validate: %v", err)
	}
	empty := EmptyTuningConfig()
	if cfg.GetLandingEnterVelocity() != empty.GetLandingEnterVelocity() {
		t.Errorf("defaults file landing_enter_velocity %f differs from built-in %f",
			cfg.GetLandingEnterVelocity(), empty.GetLandingEnterVelocity())
	}
	if cfg.GetKneeValgusRiskDeg() != empty.GetKneeValgusRiskDeg() {
		t.Errorf("defaults file knee_valgus_risk_deg %f differs from built-in %f",
			cfg.GetKneeValgusRiskDeg(), empty.GetKneeValgusRiskDeg())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "visibility too high", cfg: &TuningConfig{VisibilityThreshold: ptrFloat64(1.5)}, wantErr: true},
		{name: "visibility negative", cfg: &TuningConfig{VisibilityThreshold: ptrFloat64(-0.1)}, wantErr: true},
		{name: "negative warning margin", cfg: &TuningConfig{JointWarningMargin: ptrFloat64(-1)}, wantErr: true},
		{name: "enter above exit", cfg: &TuningConfig{LandingEnterVelocity: ptrFloat64(-0.1)}, wantErr: true},
		{name: "zero min frames", cfg: &TuningConfig{LandingMinFrames: ptrInt(0)}, wantErr: true},
		{name: "bad duration", cfg: &TuningConfig{BufferDuration: ptrString("soon")}, wantErr: true},
		{name: "min duration above max", cfg: &TuningConfig{MinLandingDuration: ptrString("1s")}, wantErr: true},
		{name: "zero fps", cfg: &TuningConfig{CaptureFPS: ptrFloat64(0)}, wantErr: true},
		{name: "alpha of one", cfg: &TuningConfig{SmoothingAlpha: ptrFloat64(1)}, wantErr: true},
		{name: "too many decimals", cfg: &TuningConfig{SmoothingDecimals: ptrInt(12)}, wantErr: true},
		{name: "arm band inverted", cfg: &TuningConfig{ArmAbductionMinDeg: ptrFloat64(60)}, wantErr: true},
		{name: "zero perf window", cfg: &TuningConfig{PerformanceWindow: ptrInt(0)}, wantErr: true},
		{name: "valid overrides", cfg: &TuningConfig{
			LandingEnterVelocity: ptrFloat64(-1.0),
			LandingExitVelocity:  ptrFloat64(-0.3),
			SmoothingAlpha:       ptrFloat64(0.5),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
