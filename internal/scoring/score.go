package scoring

import (
	"github.com/banshee-data/movement.screen/internal/metrics"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 3
)

// Options adjusts which results participate in scoring.
type Options struct {
	// MinConfidence excludes results whose confidence is below it.
	// Zero keeps every result.
	MinConfidence float64
}

// Counts summarises failures by criticality.
type Counts struct {
	CriticalFailures    int `json:"critical_failures"`
	NonCriticalFailures int `json:"non_critical_failures"`
	Considered          int `json:"considered"`
}

// Tally counts failed results. Warnings do not count as failures.
func Tally(results []metrics.Result, opts Options) Counts {
	var c Counts
	for _, r := range results {
		if r.Confidence < opts.MinConfidence {
			continue
		}
		c.Considered++
		if !r.Failed() {
			continue
		}
		if r.IsCritical {
			c.CriticalFailures++
		} else {
			c.NonCriticalFailures++
		}
	}
	return c
}

// FromCounts applies the scoring rule; the first matching rule wins.
func FromCounts(c Counts) int {
	crit, non := c.CriticalFailures, c.NonCriticalFailures
	switch {
	case crit == 0 && non <= 1:
		return 3
	case crit == 1 || (crit == 0 && non <= 2):
		return 2
	case crit >= 2 || non > 2:
		return 1
	}
	return 0
}

// Score computes the automatic score with default options.
func Score(results []metrics.Result) int {
	return FromCounts(Tally(results, Options{}))
}

// ScoreWithOptions computes the automatic score with opts.
func ScoreWithOptions(results []metrics.Result, opts Options) int {
	return FromCounts(Tally(results, opts))
}
