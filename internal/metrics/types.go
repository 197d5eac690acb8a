package metrics

import (
	"errors"
)

// ErrUnknownTest is returned when a test id is not in the catalog.
var ErrUnknownTest = errors.New("unknown movement test")

// Category groups metrics by what they measure.
type Category string

const (
	CategoryAngle     Category = "angle"
	CategoryDistance  Category = "distance"
	CategorySymmetry  Category = "symmetry"
	CategoryAlignment Category = "alignment"
	CategoryStability Category = "stability"
)

// Status is the classification of one metric result. Out-of-range values
// are a result state, not an error.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Direction tells which side of the target band a value fell on.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionAbove Direction = "+"
	DirectionBelow Direction = "-"
)

// Definition is a static catalog entry. Any combination of Min/Max may be
// set; Target selects exact-match evaluation instead.
type Definition struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	TargetDescription string   `json:"target_description"`
	Min               *float64 `json:"min,omitempty"`
	Max               *float64 `json:"max,omitempty"`
	Target            *float64 `json:"target,omitempty"`
	Tolerance         float64  `json:"tolerance"`
	Unit              string   `json:"unit"`
	IsCritical        bool     `json:"is_critical"`
	Category          Category `json:"category"`
}

// Test is one movement test and the metrics it owns.
type Test struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Metrics []Definition `json:"metrics"`
}

// Result is one Definition evaluated against one frame.
type Result struct {
	MetricID    string    `json:"metric_id"`
	Name        string    `json:"name"`
	ActualValue float64   `json:"actual_value"`
	Status      Status    `json:"status"`
	Deviation   float64   `json:"deviation"`
	Direction   Direction `json:"direction"`
	// Confidence is a percentage inherited from the angles or landmarks the
	// value was derived from. Zero means the value could not be computed.
	Confidence float64  `json:"confidence"`
	Timestamp  int64    `json:"timestamp"` // unix nanos of the source frame
	IsCritical bool     `json:"is_critical"`
	Unit       string   `json:"unit"`
	Category   Category `json:"category"`
}

// Failed reports whether the result counts as a failure for scoring.
func (r Result) Failed() bool { return r.Status == StatusFail }

func ptr(v float64) *float64 { return &v }
