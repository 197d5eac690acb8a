package metrics

import (
	"fmt"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/joints"
	"github.com/banshee-data/movement.screen/internal/pose"
)

// Config holds evaluator parameters.
type Config struct {
	VisibilityThreshold float64
}

// DefaultConfig returns the evaluator defaults.
func DefaultConfig() Config {
	return Config{VisibilityThreshold: pose.DefaultVisibilityThreshold}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{VisibilityThreshold: cfg.GetVisibilityThreshold()}
}

// Evaluator maps a test's metric definitions onto frame data.
type Evaluator struct {
	cfg      Config
	tests    []Test
	formulas map[string]Formula
}

// NewEvaluator returns an Evaluator over the default Catalog. It returns an
// error if the catalog does not validate.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	return NewEvaluatorWithCatalog(cfg, Catalog, Formulas)
}

// NewEvaluatorWithCatalog returns an Evaluator over a caller-supplied
// catalog and formula registry.
func NewEvaluatorWithCatalog(cfg Config, tests []Test, formulas map[string]Formula) (*Evaluator, error) {
	if err := ValidateCatalog(tests, formulas); err != nil {
		return nil, fmt.Errorf("invalid metric catalog: %w", err)
	}
	return &Evaluator{cfg: cfg, tests: tests, formulas: formulas}, nil
}

// Tests returns the evaluator's catalog.
func (e *Evaluator) Tests() []Test { return e.tests }

// Test returns the named test definition.
func (e *Evaluator) Test(testID string) (Test, error) {
	tc, ok := FindTest(e.tests, testID)
	if !ok {
		return Test{}, fmt.Errorf("%w: %q", ErrUnknownTest, testID)
	}
	return tc, nil
}

// Evaluate evaluates every metric of testID against one frame and its
// joint angles. Results follow the test's metric order.
func (e *Evaluator) Evaluate(testID string, frame *pose.Frame, angles []joints.JointAngle) ([]Result, error) {
	return e.EvaluateInput(testID, Input{Frame: frame, Angles: angles})
}

// EvaluateInput is Evaluate with a fully specified Input, for metrics that
// need a reference frame.
func (e *Evaluator) EvaluateInput(testID string, in Input) ([]Result, error) {
	tc, err := e.Test(testID)
	if err != nil {
		return nil, err
	}
	in.VisibilityThreshold = e.cfg.VisibilityThreshold

	var ts int64
	if in.Frame != nil {
		ts = in.Frame.Timestamp
	}

	results := make([]Result, 0, len(tc.Metrics))
	for _, def := range tc.Metrics {
		value, conf, ok := e.formulas[def.ID](&in)
		if !ok {
			value, conf = 0, 0
		}
		status, dev, dir := Classify(def, value)
		results = append(results, Result{
			MetricID:    def.ID,
			Name:        def.Name,
			ActualValue: value,
			Status:      status,
			Deviation:   dev,
			Direction:   dir,
			Confidence:  conf,
			Timestamp:   ts,
			IsCritical:  def.IsCritical,
			Unit:        def.Unit,
			Category:    def.Category,
		})
	}
	return results, nil
}
