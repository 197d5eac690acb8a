package metrics

import (
	"fmt"

	"github.com/banshee-data/movement.screen/internal/units"
)

// Movement test ids.
const (
	DeepSquat              = "deep_squat"
	HurdleStep             = "hurdle_step"
	InlineLunge            = "inline_lunge"
	ShoulderMobility       = "shoulder_mobility"
	ActiveStraightLegRaise = "active_straight_leg_raise"
	TrunkStabilityPushup   = "trunk_stability_pushup"
	RotaryStability        = "rotary_stability"
)

// Catalog is the static test catalog, loaded once and read-only.
var Catalog = []Test{
	{
		ID:   DeepSquat,
		Name: "Deep Squat",
		Metrics: []Definition{
			{ID: KneeValgus, Name: "Knee valgus", TargetDescription: "knee within 15° of 90°",
				Max: ptr(15), Tolerance: 5, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: HipDepth, Name: "Squat depth", TargetDescription: "hip angle at or below 100°",
				Max: ptr(100), Tolerance: 10, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: TorsoTibiaParallel, Name: "Torso parallel to tibia", TargetDescription: "trunk and tibia lean within 15°",
				Max: ptr(15), Tolerance: 5, Unit: units.Degrees, Category: CategoryAlignment},
			{ID: ArmsOverhead, Name: "Arms overhead", TargetDescription: "shoulder flexion at least 160°",
				Min: ptr(160), Tolerance: 10, Unit: units.Degrees, Category: CategoryAngle},
			{ID: PelvicTilt, Name: "Pelvic tilt", TargetDescription: "trunk within 10° of vertical",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, Category: CategoryAlignment},
			{ID: KneeSymmetry, Name: "Knee symmetry", TargetDescription: "left/right knee angles within 10%",
				Max: ptr(10), Tolerance: 5, Unit: units.Percent, Category: CategorySymmetry},
		},
	},
	{
		ID:   HurdleStep,
		Name: "Hurdle Step",
		Metrics: []Definition{
			{ID: StepHipFlexion, Name: "Stepping hip flexion", TargetDescription: "stepping hip angle at or below 120°",
				Max: ptr(120), Tolerance: 10, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: StanceKneeExtension, Name: "Stance knee extension", TargetDescription: "stance knee at least 165°",
				Min: ptr(165), Tolerance: 5, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: PelvicLevel, Name: "Pelvic level", TargetDescription: "hips level within 5°",
				Max: ptr(5), Tolerance: 3, Unit: units.Degrees, Category: CategoryAlignment},
			{ID: TrunkLean, Name: "Trunk stability", TargetDescription: "lateral trunk lean within 10°",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, Category: CategoryStability},
		},
	},
	{
		ID:   InlineLunge,
		Name: "Inline Lunge",
		Metrics: []Definition{
			{ID: FrontKneeFlexion, Name: "Front knee flexion", TargetDescription: "front knee at 90° ± 10°",
				Target: ptr(90), Tolerance: 10, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: TrunkLean, Name: "Upright torso", TargetDescription: "lateral trunk lean within 10°",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, IsCritical: true, Category: CategoryStability},
			{ID: PelvicLevel, Name: "Pelvic level", TargetDescription: "hips level within 5°",
				Max: ptr(5), Tolerance: 3, Unit: units.Degrees, Category: CategoryAlignment},
		},
	},
	{
		ID:   ShoulderMobility,
		Name: "Shoulder Mobility",
		Metrics: []Definition{
			{ID: HandDistance, Name: "Hand distance", TargetDescription: "fists within one shoulder width",
				Max: ptr(1.0), Tolerance: 0.25, Unit: units.Ratio, IsCritical: true, Category: CategoryDistance},
			{ID: ShoulderSymmetry, Name: "Shoulder symmetry", TargetDescription: "left/right shoulder angles within 10%",
				Max: ptr(10), Tolerance: 5, Unit: units.Percent, Category: CategorySymmetry},
		},
	},
	{
		ID:   ActiveStraightLegRaise,
		Name: "Active Straight Leg Raise",
		Metrics: []Definition{
			{ID: LegRaiseAngle, Name: "Leg raise angle", TargetDescription: "raised leg at least 70° from the down leg",
				Min: ptr(70), Tolerance: 10, Unit: units.Degrees, IsCritical: true, Category: CategoryAngle},
			{ID: StanceKneeExtension, Name: "Down leg knee extension", TargetDescription: "down knee at least 170°",
				Min: ptr(170), Tolerance: 5, Unit: units.Degrees, Category: CategoryAngle},
			{ID: PelvicTilt, Name: "Pelvic tilt", TargetDescription: "trunk within 10° of vertical",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, Category: CategoryAlignment},
		},
	},
	{
		ID:   TrunkStabilityPushup,
		Name: "Trunk Stability Push-up",
		Metrics: []Definition{
			{ID: BodyAlignment, Name: "Body alignment", TargetDescription: "shoulder-hip-ankle at least 165°",
				Min: ptr(165), Tolerance: 5, Unit: units.Degrees, IsCritical: true, Category: CategoryAlignment},
			{ID: CoordinationTiming, Name: "Coordination timing", TargetDescription: "trunk rises as one unit (lag ≤ 0.1 trunk lengths)",
				Max: ptr(0.1), Tolerance: 0.05, Unit: units.Ratio, IsCritical: true, Category: CategoryStability},
		},
	},
	{
		ID:   RotaryStability,
		Name: "Rotary Stability",
		Metrics: []Definition{
			{ID: TrunkRotation, Name: "Trunk rotation", TargetDescription: "shoulders and hips aligned within 10°",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, IsCritical: true, Category: CategoryStability},
			{ID: PelvicLevel, Name: "Pelvic level", TargetDescription: "hips level within 5°",
				Max: ptr(5), Tolerance: 3, Unit: units.Degrees, IsCritical: true, Category: CategoryAlignment},
			{ID: TrunkLean, Name: "Spine alignment", TargetDescription: "lateral trunk lean within 10°",
				Max: ptr(10), Tolerance: 5, Unit: units.Degrees, Category: CategoryStability},
		},
	},
}

// ValidateCatalog checks test ids are unique, every metric has a formula,
// a known unit, consistent bounds and a non-negative tolerance.
func ValidateCatalog(tests []Test, formulas map[string]Formula) error {
	seen := make(map[string]bool, len(tests))
	for _, tc := range tests {
		if tc.ID == "" {
			return fmt.Errorf("test %q has no id", tc.Name)
		}
		if seen[tc.ID] {
			return fmt.Errorf("duplicate test id %q", tc.ID)
		}
		seen[tc.ID] = true

		metricSeen := make(map[string]bool, len(tc.Metrics))
		for _, m := range tc.Metrics {
			if metricSeen[m.ID] {
				return fmt.Errorf("test %s: duplicate metric %q", tc.ID, m.ID)
			}
			metricSeen[m.ID] = true
			if _, ok := formulas[m.ID]; !ok {
				return fmt.Errorf("test %s: metric %q has no formula", tc.ID, m.ID)
			}
			if !units.IsValid(m.Unit) {
				return fmt.Errorf("test %s: metric %q has unit %q (want one of %s)",
					tc.ID, m.ID, m.Unit, units.GetValidUnitsString())
			}
			if m.Tolerance < 0 {
				return fmt.Errorf("test %s: metric %q has negative tolerance", tc.ID, m.ID)
			}
			if m.Min != nil && m.Max != nil && *m.Min > *m.Max {
				return fmt.Errorf("test %s: metric %q has min above max", tc.ID, m.ID)
			}
			if m.Target != nil && (m.Min != nil || m.Max != nil) {
				return fmt.Errorf("test %s: metric %q mixes target with bounds", tc.ID, m.ID)
			}
		}
	}
	return nil
}

// FindTest returns the catalog test with the given id.
func FindTest(tests []Test, id string) (Test, bool) {
	for _, tc := range tests {
		if tc.ID == id {
			return tc, true
		}
	}
	return Test{}, false
}
