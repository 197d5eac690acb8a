package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/movement.screen/internal/timeutil"
)

// ErrInvalidScore is returned for overrides outside 0-3.
var ErrInvalidScore = errors.New("score out of range")

// ScoreChange is one audit trail entry.
type ScoreChange struct {
	Timestamp time.Time `json:"timestamp"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Reason    string    `json:"reason"`
}

// AssessmentScore is the scored outcome of one test in a session.
type AssessmentScore struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"session_id"`
	TestID         string        `json:"test_id"`
	AutomaticScore int           `json:"automatic_score"`
	ManualScore    *int          `json:"manual_score,omitempty"`
	OverrideReason string        `json:"override_reason,omitempty"`
	Pain           bool          `json:"pain"`
	Audit          []ScoreChange `json:"audit,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Assessor creates and amends AssessmentScores.
type Assessor struct {
	clock timeutil.Clock
}

// NewAssessor returns an Assessor using clock for audit timestamps. A nil
// clock uses the real clock.
func NewAssessor(clock timeutil.Clock) *Assessor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Assessor{clock: clock}
}

// New returns a fresh score for testID with the given automatic score.
func (a *Assessor) New(sessionID, testID string, automatic int) *AssessmentScore {
	return &AssessmentScore{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		TestID:         testID,
		AutomaticScore: automatic,
		CreatedAt:      a.clock.Now(),
	}
}

// Override sets a manual score and appends an audit entry from the current
// final score.
func (a *Assessor) Override(s *AssessmentScore, score int, reason string) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	from := s.FinalScore()
	s.ManualScore = &score
	s.OverrideReason = reason
	s.Audit = append(s.Audit, ScoreChange{Timestamp: a.clock.Now(), From: from, To: s.FinalScore(), Reason: reason})
	return nil
}

// PainReason is recorded when pain is flagged without a reason.
const PainReason = "pain reported"

// SetPain records the pain flag. Setting pain forces the final score to
// zero and records the reason as the override reason; clearing it restores
// the automatic or manual score. Changes to the flag are audited.
func (a *Assessor) SetPain(s *AssessmentScore, pain bool, reason string) {
	if s.Pain == pain {
		return
	}
	if reason == "" && pain {
		reason = PainReason
	}
	from := s.FinalScore()
	s.Pain = pain
	if pain {
		s.OverrideReason = reason
	}
	s.Audit = append(s.Audit, ScoreChange{Timestamp: a.clock.Now(), From: from, To: s.FinalScore(), Reason: reason})
}

// FinalScore is 0 with pain, otherwise the manual score if set, otherwise
// the automatic score.
func (s *AssessmentScore) FinalScore() int {
	if s.Pain {
		return 0
	}
	if s.ManualScore != nil {
		return *s.ManualScore
	}
	return s.AutomaticScore
}

// Overridden reports whether a manual score is in effect.
func (s *AssessmentScore) Overridden() bool { return s.ManualScore != nil }

// Composite sums final scores across tests.
func Composite(scores []*AssessmentScore) int {
	total := 0
	for _, s := range scores {
		total += s.FinalScore()
	}
	return total
}
