package metrics

import "math"

// Classify applies a definition's bounds to an actual value. Bounds are
// inclusive. Warning means the value missed the band by no more than the
// tolerance (twice the tolerance for exact targets).
func Classify(def Definition, actual float64) (Status, float64, Direction) {
	tol := def.Tolerance

	if def.Target != nil {
		t := *def.Target
		d := math.Abs(actual - t)
		if d <= tol {
			return StatusPass, 0, DirectionNone
		}
		dir := DirectionBelow
		if actual > t {
			dir = DirectionAbove
		}
		if d <= 2*tol {
			return StatusWarning, d - tol, dir
		}
		return StatusFail, d - tol, dir
	}

	var dev float64
	var dir Direction
	switch {
	case def.Min != nil && actual < *def.Min:
		dev, dir = *def.Min-actual, DirectionBelow
	case def.Max != nil && actual > *def.Max:
		dev, dir = actual-*def.Max, DirectionAbove
	default:
		return StatusPass, 0, DirectionNone
	}
	if dev <= tol {
		return StatusWarning, dev, dir
	}
	return StatusFail, dev, dir
}
