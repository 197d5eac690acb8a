package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/stereo"
	"github.com/banshee-data/movement.screen/internal/testutil"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

var sessionStart = time.Date(2025, 5, 6, 14, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, calib *stereo.Calibration) (*Session, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	s, err := New(Options{
		ID:          "session-1",
		Tuning:      config.MustLoadDefaultConfig(),
		Store:       store,
		Clock:       timeutil.NewMockClock(sessionStart),
		Calibration: calib,
	})
	require.NoError(t, err)
	return s, store
}

func TestAnalyzeFrame_UnknownTest(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	_, err := s.AnalyzeFrame("plank", testutil.StandingFrame(0))
	assert.True(t, errors.Is(err, metrics.ErrUnknownTest))
}

func TestScoreTest_KneeValgusCapsScore(t *testing.T) {
	t.Parallel()

	s, store := newTestSession(t, nil)
	f := testutil.StandingFrame(1)
	testutil.SetKneeAngle(&f, true, 170)
	testutil.SetKneeAngle(&f, false, 170)

	a, err := s.AnalyzeFrame(metrics.DeepSquat, f)
	require.NoError(t, err)
	var valgus metrics.Result
	for _, r := range a.Results {
		if r.MetricID == metrics.KneeValgus {
			valgus = r
		}
	}
	assert.InDelta(t, 80, valgus.ActualValue, 0.5)
	assert.Equal(t, metrics.StatusFail, valgus.Status)
	assert.True(t, valgus.IsCritical)
	assert.LessOrEqual(t, a.Score, 2)

	score, err := s.ScoreTest(metrics.DeepSquat, []*FrameAnalysis{a})
	require.NoError(t, err)
	assert.Equal(t, a.Score, score.AutomaticScore)
	assert.Equal(t, "session-1", score.SessionID)
	assert.Equal(t, sessionStart, score.CreatedAt)

	stored, err := store.LoadScore(score.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(score, stored); diff != "" {
		t.Errorf("stored score (-want +got):\n%s", diff)
	}

	_, err = s.ScoreTest(metrics.DeepSquat, []*FrameAnalysis{a})
	assert.True(t, errors.Is(err, ErrAlreadyScored))
}

func TestScoreTest_BestFrameWins(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	analyses := []*FrameAnalysis{
		{TestID: metrics.HurdleStep, Score: 1},
		{TestID: metrics.HurdleStep, Score: 2},
		{TestID: metrics.DeepSquat, Score: 3},
	}
	score, err := s.ScoreTest(metrics.HurdleStep, analyses)
	require.NoError(t, err)
	assert.Equal(t, 2, score.AutomaticScore)

	_, err = s.ScoreTest(metrics.InlineLunge, analyses)
	assert.True(t, errors.Is(err, ErrNoFrames))
}

func TestOverrideAndPain(t *testing.T) {
	t.Parallel()

	s, store := newTestSession(t, nil)
	_, err := s.Override(metrics.ShoulderMobility, 3, "x")
	assert.True(t, errors.Is(err, ErrNotScored))
	_, err = s.ReportPain(metrics.ShoulderMobility, true, "")
	assert.True(t, errors.Is(err, ErrNotScored))

	_, err = s.ScoreTest(metrics.ShoulderMobility, []*FrameAnalysis{{TestID: metrics.ShoulderMobility, Score: 2}})
	require.NoError(t, err)
	_, err = s.ScoreTest(metrics.DeepSquat, []*FrameAnalysis{{TestID: metrics.DeepSquat, Score: 3}})
	require.NoError(t, err)

	as, err := s.Override(metrics.ShoulderMobility, 3, "measured with tape")
	require.NoError(t, err)
	assert.Equal(t, 3, as.FinalScore())

	as, err = s.ReportPain(metrics.ShoulderMobility, true, "clearing test positive")
	require.NoError(t, err)
	assert.Equal(t, 0, as.FinalScore())
	assert.Equal(t, 2, as.AutomaticScore)

	stored, err := store.LoadScore(as.ID)
	require.NoError(t, err)
	assert.True(t, stored.Pain)
	assert.Len(t, stored.Audit, 2)

	sum := s.Summary()
	require.Len(t, sum.Scores, 2)
	assert.Equal(t, metrics.ShoulderMobility, sum.Scores[0].TestID)
	assert.Equal(t, 3, sum.Composite)

	listed, err := store.ListScores("session-1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestAnalyzeFrame_ReferenceFrame(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	start := testutil.StandingFrame(0)
	a, err := s.AnalyzeFrame(metrics.TrunkStabilityPushup, start)
	require.NoError(t, err)
	assert.InDelta(t, 100, a.Results[1].Confidence, 1e-9)
	assert.InDelta(t, 0, a.Results[1].ActualValue, 1e-9)

	// Hips sag 10cm while the shoulders stay put.
	f := testutil.StandingFrame(1)
	down := geom.Vec3{Y: -0.1}
	testutil.SetPoint(&f, pose.LeftHip, f.Point(pose.LeftHip).Add(down))
	testutil.SetPoint(&f, pose.RightHip, f.Point(pose.RightHip).Add(down))
	a, err = s.AnalyzeFrame(metrics.TrunkStabilityPushup, f)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, a.Results[1].ActualValue, 1e-9)
	assert.Equal(t, metrics.StatusFail, a.Results[1].Status)
}

const frameStep = 10 * time.Millisecond

func dropJump() []pose.Frame {
	var frames []pose.Frame
	offset := 0.0
	for i := 0; i < 45; i++ {
		if i >= 10 && i < 30 {
			offset -= 0.01
		}
		f := testutil.StandingFrame(int64(i) * int64(frameStep))
		testutil.Translate(&f, geom.Vec3{Y: offset})
		frames = append(frames, f)
	}
	return frames
}

func TestProcessStereo_RecordsTrial(t *testing.T) {
	t.Parallel()

	P1, P2 := testutil.StereoRig(0.3)
	calib, err := stereo.FromProjections(P1, P2, 1280, 720)
	require.NoError(t, err)
	s, store := newTestSession(t, calib)

	var trials []*landing.Trial
	for _, f := range dropJump() {
		f1 := testutil.ProjectFrame(t, f, P1, 1280, 720)
		f2 := testutil.ProjectFrame(t, f, P2, 1280, 720)
		res, err := s.ProcessStereo(&f1, &f2, f.Timestamp)
		require.NoError(t, err)
		require.NotNil(t, res.Result)
		if res.Trial != nil {
			trials = append(trials, res.Trial)
		}
	}
	require.Len(t, trials, 1)
	assert.Equal(t, 10, trials[0].Phase.Start)
	assert.Equal(t, 30, trials[0].Phase.End)
	assert.Equal(t, "session-1", trials[0].SessionID)

	stored, err := store.ListTrials("session-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, trials[0].ID, stored[0].ID)

	sum := s.Summary()
	require.Len(t, sum.Trials, 1)
	assert.Equal(t, 1, sum.Assessment.Trials)
	assert.NotEmpty(t, s.LandingSamples())
}

func TestProcessStereo_NotCalibrated(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	f := testutil.StandingFrame(0)
	_, err := s.ProcessStereo(&f, &f, 0)
	assert.True(t, errors.Is(err, stereo.ErrNotCalibrated))
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil)
	frames := dropJump()[:3]
	rec, err := s.SaveRecording(metrics.DeepSquat, frames)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Frames)
	assert.Equal(t, FramesContentType, rec.ContentType)

	got, err := s.LoadRecordingFrames(rec.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}

	_, err = s.LoadRecordingFrames("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = DecodeFrames(&Recording{ID: "r", ContentType: "video/mp4"})
	assert.Error(t, err)
}

func TestNew_InvalidTuning(t *testing.T) {
	t.Parallel()

	bad := -1.0
	_, err := New(Options{Tuning: &config.TuningConfig{VisibilityThreshold: &bad}})
	assert.Error(t, err)

	s, err := New(Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Len(t, s.Tests(), 7)
}
