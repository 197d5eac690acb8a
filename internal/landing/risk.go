package landing

import (
	"github.com/banshee-data/movement.screen/internal/config"
)

// Risk is a risk tier.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
)

// Risk factor labels.
const (
	FactorKneeValgus      = "knee_valgus"
	FactorValgusAsymmetry = "valgus_asymmetry"
	FactorTrunkLean       = "trunk_lean"
	FactorArmPosition     = "arm_position"
	FactorInstability     = "instability"
)

// RiskConfig holds the trial risk thresholds in degrees, except
// InstabilityIndex.
type RiskConfig struct {
	KneeValgusDeg        float64
	ValgusAsymmetryDeg   float64
	TrunkLeanSagittalDeg float64
	TrunkLeanFrontalDeg  float64
	ArmAbductionMinDeg   float64
	ArmAbductionMaxDeg   float64
	InstabilityIndex     float64
}

// RiskConfigFromTuning builds a RiskConfig from a TuningConfig.
func RiskConfigFromTuning(cfg *config.TuningConfig) RiskConfig {
	return RiskConfig{
		KneeValgusDeg:        cfg.GetKneeValgusRiskDeg(),
		ValgusAsymmetryDeg:   cfg.GetValgusAsymmetryDeg(),
		TrunkLeanSagittalDeg: cfg.GetTrunkLeanSagittalDeg(),
		TrunkLeanFrontalDeg:  cfg.GetTrunkLeanFrontalDeg(),
		ArmAbductionMinDeg:   cfg.GetArmAbductionMinDeg(),
		ArmAbductionMaxDeg:   cfg.GetArmAbductionMaxDeg(),
		InstabilityIndex:     cfg.GetInstabilityRiskIndex(),
	}
}

// ArmPositionValid reports whether an abduction angle is in the allowed
// band, inclusive.
func (c RiskConfig) ArmPositionValid(deg float64) bool {
	return deg >= c.ArmAbductionMinDeg && deg <= c.ArmAbductionMaxDeg
}

// Classify scores trial metrics and returns the score, tier and the
// factors that contributed.
func (c RiskConfig) Classify(m TrialMetrics) (int, Risk, []string) {
	score := 0
	var factors []string
	if m.LeftValgus > c.KneeValgusDeg || m.RightValgus > c.KneeValgusDeg {
		score += 2
		factors = append(factors, FactorKneeValgus)
	}
	if m.ValgusAsymmetry > c.ValgusAsymmetryDeg {
		score++
		factors = append(factors, FactorValgusAsymmetry)
	}
	if m.TrunkLeanSagittal > c.TrunkLeanSagittalDeg || m.TrunkLeanFrontal > c.TrunkLeanFrontalDeg {
		score++
		factors = append(factors, FactorTrunkLean)
	}
	if !m.ArmPositionValid {
		score++
		factors = append(factors, FactorArmPosition)
	}
	if m.InstabilityIndex > c.InstabilityIndex {
		score++
		factors = append(factors, FactorInstability)
	}
	return score, TierForScore(score), factors
}

// TierForScore maps a risk score to a tier.
func TierForScore(score int) Risk {
	switch {
	case score >= 3:
		return RiskHigh
	case score >= 1:
		return RiskModerate
	}
	return RiskLow
}

// Assessment summarises all trials of a session.
type Assessment struct {
	Trials   int  `json:"trials"`
	High     int  `json:"high"`
	Moderate int  `json:"moderate"`
	Low      int  `json:"low"`
	Overall  Risk `json:"overall"`
}

// Assess classifies a session: high when at least half the trials are
// high risk, moderate when at least 30% are high or half are moderate,
// otherwise low. No trials is low.
func Assess(trials []Trial) Assessment {
	a := Assessment{Trials: len(trials), Overall: RiskLow}
	for _, t := range trials {
		switch t.Risk {
		case RiskHigh:
			a.High++
		case RiskModerate:
			a.Moderate++
		default:
			a.Low++
		}
	}
	if a.Trials == 0 {
		return a
	}
	n := float64(a.Trials)
	high, moderate := float64(a.High)/n, float64(a.Moderate)/n
	switch {
	case high >= 0.5:
		a.Overall = RiskHigh
	case high >= 0.3 || moderate >= 0.5:
		a.Overall = RiskModerate
	}
	return a
}
