// Package units provides shared constants and validation for metric units
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	Degrees    = "deg"
	Percent    = "%"
	Ratio      = "ratio"
	Meters     = "m"
	Centimeter = "cm"
	Normalized = "norm" // normalised image coordinates
	MPS        = "mps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Percent, Ratio, Meters, Centimeter, Normalized, MPS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// Symbol returns the display suffix for a unit, e.g. "°" for degrees.
func Symbol(unit string) string {
	switch unit {
	case Degrees:
		return "°"
	case Percent:
		return "%"
	case Meters:
		return " m"
	case Centimeter:
		return " cm"
	case MPS:
		return " m/s"
	case Ratio, Normalized:
		return ""
	default:
		return " " + unit
	}
}

// Format renders a value with its unit symbol at one decimal place.
func Format(value float64, unit string) string {
	return fmt.Sprintf("%.1f%s", value, Symbol(unit))
}

// ConvertLength converts a length in meters to the target unit. Units that
// are not lengths are returned unchanged.
func ConvertLength(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case Centimeter:
		return meters * 100
	default:
		return meters
	}
}
