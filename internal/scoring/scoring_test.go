package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

func results(critFail, nonCritFail, passes int) []metrics.Result {
	var out []metrics.Result
	for i := 0; i < critFail; i++ {
		out = append(out, metrics.Result{Status: metrics.StatusFail, IsCritical: true, Confidence: 100})
	}
	for i := 0; i < nonCritFail; i++ {
		out = append(out, metrics.Result{Status: metrics.StatusFail, Confidence: 100})
	}
	for i := 0; i < passes; i++ {
		out = append(out, metrics.Result{Status: metrics.StatusPass, IsCritical: i%2 == 0, Confidence: 100})
	}
	return out
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		crit    int
		nonCrit int
		want    int
	}{
		{"clean", 0, 0, 3},
		{"one non-critical", 0, 1, 3},
		{"two non-critical", 0, 2, 2},
		{"one critical", 1, 0, 2},
		{"one critical plus non-critical", 1, 3, 2},
		{"two critical", 2, 0, 1},
		{"three non-critical", 0, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(results(tt.crit, tt.nonCrit, 2)))
		})
	}
}

func TestFromCounts_FallThrough(t *testing.T) {
	t.Parallel()
	// Negative counts never occur from Tally but exercise the last rule.
	assert.Equal(t, 0, FromCounts(Counts{CriticalFailures: -1, NonCriticalFailures: 3}))
}

func TestTally_WarningsAreNotFailures(t *testing.T) {
	t.Parallel()

	rs := []metrics.Result{
		{Status: metrics.StatusWarning, IsCritical: true},
		{Status: metrics.StatusWarning},
		{Status: metrics.StatusFail},
	}
	want := Counts{CriticalFailures: 0, NonCriticalFailures: 1, Considered: 3}
	if diff := cmp.Diff(want, Tally(rs, Options{})); diff != "" {
		t.Errorf("Tally mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, Score(rs))
}

func TestScoreWithOptions_MinConfidence(t *testing.T) {
	t.Parallel()

	rs := []metrics.Result{
		{Status: metrics.StatusFail, IsCritical: true, Confidence: 0},
		{Status: metrics.StatusFail, IsCritical: true, Confidence: 0},
		{Status: metrics.StatusPass, Confidence: 90},
	}
	// Zero-confidence results participate by default.
	assert.Equal(t, 1, Score(rs))
	assert.Equal(t, 3, ScoreWithOptions(rs, Options{MinConfidence: 50}))
}

func newTestAssessor() (*Assessor, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewAssessor(clock), clock
}

func TestOverride_PreservesAutomatic(t *testing.T) {
	t.Parallel()

	a, clock := newTestAssessor()
	s := a.New("session-1", metrics.DeepSquat, 2)
	require.NotEmpty(t, s.ID)
	assert.False(t, s.Overridden())
	assert.Equal(t, 2, s.FinalScore())

	clock.Advance(time.Minute)
	require.NoError(t, a.Override(s, 3, "compensation not clinically relevant"))
	clock.Advance(time.Minute)
	require.NoError(t, a.Override(s, 1, "re-reviewed video"))

	assert.Equal(t, 2, s.AutomaticScore)
	assert.Equal(t, 1, s.FinalScore())
	assert.Equal(t, "re-reviewed video", s.OverrideReason)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	want := []ScoreChange{
		{Timestamp: start.Add(time.Minute), From: 2, To: 3, Reason: "compensation not clinically relevant"},
		{Timestamp: start.Add(2 * time.Minute), From: 3, To: 1, Reason: "re-reviewed video"},
	}
	if diff := cmp.Diff(want, s.Audit); diff != "" {
		t.Errorf("audit mismatch (-want +got):\n%s", diff)
	}
}

func TestOverride_Range(t *testing.T) {
	t.Parallel()

	a, _ := newTestAssessor()
	s := a.New("s", metrics.HurdleStep, 3)
	for _, bad := range []int{-1, 4} {
		err := a.Override(s, bad, "typo")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidScore))
	}
	assert.Empty(t, s.Audit)
	assert.Nil(t, s.ManualScore)
}

func TestSetPain(t *testing.T) {
	t.Parallel()

	a, _ := newTestAssessor()
	s := a.New("s", metrics.ShoulderMobility, Score(results(0, 0, 3)))
	require.Equal(t, 3, s.FinalScore())

	a.SetPain(s, true, "")
	assert.Equal(t, 0, s.FinalScore())
	assert.Equal(t, 3, s.AutomaticScore)
	assert.Equal(t, PainReason, s.OverrideReason)
	require.Len(t, s.Audit, 1)
	assert.Equal(t, 3, s.Audit[0].From)
	assert.Equal(t, 0, s.Audit[0].To)

	// Overrides cannot lift a pain score.
	require.NoError(t, a.Override(s, 2, "clinician"))
	assert.Equal(t, 0, s.FinalScore())

	// Repeating the flag is a no-op.
	a.SetPain(s, true, "again")
	assert.Len(t, s.Audit, 2)

	a.SetPain(s, false, "pain resolved on retest")
	assert.Equal(t, 2, s.FinalScore())
	assert.Len(t, s.Audit, 3)
}

func TestComposite(t *testing.T) {
	t.Parallel()

	a, _ := newTestAssessor()
	s1 := a.New("s", metrics.DeepSquat, 3)
	s2 := a.New("s", metrics.HurdleStep, 2)
	s3 := a.New("s", metrics.InlineLunge, 2)
	a.SetPain(s3, true, "knee pain")
	assert.Equal(t, 5, Composite([]*AssessmentScore{s1, s2, s3}))
	assert.NotEqual(t, s1.ID, s2.ID)
}

func TestNewAssessor_NilClock(t *testing.T) {
	t.Parallel()
	s := NewAssessor(nil).New("s", metrics.DeepSquat, 1)
	assert.False(t, s.CreatedAt.IsZero())
}
