package stereo

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/testutil"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

const (
	testWidth    = 1280
	testHeight   = 720
	testBaseline = 0.3
)

func testRig(t *testing.T) *Calibration {
	t.Helper()
	P1, P2 := testutil.StereoRig(testBaseline)
	calib, err := FromProjections(P1, P2, testWidth, testHeight)
	require.NoError(t, err)
	return calib
}

func projectPair(t *testing.T, f pose.Frame) (pose.Frame, pose.Frame) {
	t.Helper()
	P1, P2 := testutil.StereoRig(testBaseline)
	return testutil.ProjectFrame(t, f, P1, testWidth, testHeight),
		testutil.ProjectFrame(t, f, P2, testWidth, testHeight)
}

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p, err := NewProcessor(testRig(t), cfg, timeutil.NewMockClock(time.Unix(0, 0)))
	require.NoError(t, err)
	return p
}

func TestFromProjections_Baseline(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, testBaseline, testRig(t).Baseline, 1e-9)
}

func TestNewCalibration(t *testing.T) {
	t.Parallel()

	K := geom.Mat3{{800, 0, 640}, {0, -800, 360}, {0, 0, 1}}
	cam1 := NewCameraParams(K, geom.Identity3(), geom.Vec3{Z: 4}, nil)
	cam2 := NewCameraParams(K, geom.Identity3(), geom.Vec3{X: -testBaseline, Z: 4}, []float64{0.01, -0.002, 0, 0, 0})
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	calib, err := NewCalibration(cam1, cam2, testWidth, testHeight, at)
	require.NoError(t, err)
	assert.True(t, calib.IsCalibrated)
	assert.InDelta(t, testBaseline, calib.Baseline, 1e-9)

	P1, P2 := testutil.StereoRig(testBaseline)
	approx := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(P1, calib.Camera1.Projection, approx); diff != "" {
		t.Errorf("camera 1 projection (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(P2, calib.Camera2.Projection, approx); diff != "" {
		t.Errorf("camera 2 projection (-want +got):\n%s", diff)
	}

	// A world point seen by both cameras satisfies the epipolar constraint.
	X := geom.Vec3{X: 0.2, Y: 1.1, Z: 0.3}
	p1, ok := geom.ProjectPoint(P1, X)
	require.True(t, ok)
	p2, ok := geom.ProjectPoint(P2, X)
	require.True(t, ok)
	assert.InDelta(t, 0, calib.EpipolarError(p1, p2), 1e-6)
	// A point off the epipolar line does not.
	assert.Greater(t, abs(calib.EpipolarError(p1, geom.Point2{X: p2.X, Y: p2.Y + 40})), 1e-3)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestNewCalibration_InvalidSize(t *testing.T) {
	t.Parallel()
	_, err := NewCalibration(CameraParams{}, CameraParams{}, 0, 720, time.Time{})
	assert.Error(t, err)
}

func TestCalibration_SaveLoad(t *testing.T) {
	t.Parallel()

	calib := testRig(t)
	path := filepath.Join(t.TempDir(), "rig.json")
	require.NoError(t, calib.Save(path))

	got, err := LoadCalibration(path)
	require.NoError(t, err)
	if diff := cmp.Diff(calib, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	_, err = LoadCalibration(filepath.Join(t.TempDir(), "rig.yaml"))
	assert.Error(t, err)
}

func TestProcess_NotCalibrated(t *testing.T) {
	t.Parallel()

	p, err := NewProcessor(&Calibration{}, DefaultConfig(), nil)
	require.NoError(t, err)
	f := testutil.StandingFrame(0)
	_, err = p.Process3DPose(&f, &f, 0)
	assert.True(t, errors.Is(err, ErrNotCalibrated))

	p, err = NewProcessor(nil, DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = p.Process3DPose(&f, &f, 0)
	assert.True(t, errors.Is(err, ErrNotCalibrated))
}

func TestProcess_RecoversPose(t *testing.T) {
	t.Parallel()

	world := testutil.StandingFrame(0)
	f1, f2 := projectPair(t, world)
	p := newTestProcessor(t, DefaultConfig())

	res, err := p.Process3DPose(&f1, &f2, 1234)
	require.NoError(t, err)
	assert.Empty(t, res.PointErrors)
	assert.Equal(t, int64(1234), res.Frame.Timestamp)

	for i := 0; i < pose.NumLandmarks; i++ {
		got := res.Frame.Point(i)
		want := world.Point(i)
		assert.InDelta(t, want.X, got.X, 1e-3, "landmark %d x", i)
		assert.InDelta(t, want.Y, got.Y, 1e-3, "landmark %d y", i)
		assert.InDelta(t, want.Z, got.Z, 1e-3, "landmark %d z", i)
		assert.Equal(t, 1.0, res.Frame.Landmarks[i].Visibility)
		// Rounded to three decimals.
		assert.InDelta(t, got.X, geom.Round(got, 3).X, 1e-12)
	}
	assert.InDelta(t, 1.0, res.Frame.Confidence, 1e-9)
}

func TestProcess_LowVisibilityPlaceholder(t *testing.T) {
	t.Parallel()

	world := testutil.StandingFrame(0)
	f1, f2 := projectPair(t, world)
	testutil.SetVisibility(&f1, 0.3, pose.Nose)
	testutil.SetVisibility(&f2, 0.4, pose.LeftWrist)

	res, err := newTestProcessor(t, DefaultConfig()).Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)
	require.Len(t, res.Frame.Landmarks, pose.NumLandmarks)
	for _, idx := range []int{pose.Nose, pose.LeftWrist} {
		assert.Equal(t, pose.Landmark{}, res.Frame.Landmarks[idx], "landmark %d", idx)
	}
	assert.InDelta(t, world.Point(pose.RightWrist).X, res.Frame.Point(pose.RightWrist).X, 1e-3)
}

func TestProcess_KneeConstraint(t *testing.T) {
	t.Parallel()

	world := testutil.StandingFrame(0)
	// Thigh 0.65, shank 0.22: ratio far above 1.1.
	testutil.SetPoint(&world, pose.LeftKnee, geom.Vec3{X: 0.1, Y: 0.3, Z: 0})
	f1, f2 := projectPair(t, world)

	res, err := newTestProcessor(t, DefaultConfig()).Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)

	hip, knee, ankle := res.Frame.Point(pose.LeftHip), res.Frame.Point(pose.LeftKnee), res.Frame.Point(pose.LeftAnkle)
	assert.InDelta(t, 0.95-0.87*1.1/2.1, knee.Y, 2e-3)
	assert.InDelta(t, 1.1, geom.Distance(hip, knee)/geom.Distance(knee, ankle), 0.02)

	// The right leg (ratio 0.45/0.42) is left alone.
	assert.InDelta(t, 0.5, res.Frame.Point(pose.RightKnee).Y, 1e-3)
}

func TestProcess_Confidence(t *testing.T) {
	t.Parallel()

	world := testutil.StandingFrame(0)
	f1, f2 := projectPair(t, world)

	p := newTestProcessor(t, DefaultConfig())
	res, err := p.Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)
	// A 0.3m baseline at about 4.1m subtends about 4.2°, well under full weight.
	hip := res.Frame.Point(pose.LeftHip)
	assert.InDelta(t, 4.18, p.TriangulationAngle(hip), 0.05)
	assert.InDelta(t, 0.136, res.Confidence, 0.005)

	cfg := DefaultConfig()
	cfg.FullWeightAngleDeg = 2
	res, err = newTestProcessor(t, cfg).Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)

	// Visibility exactly at the threshold triangulates but does not count.
	for i := range f1.Landmarks {
		f1.Landmarks[i].Visibility = 0.5
	}
	res, err = newTestProcessor(t, cfg).Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Confidence)
	assert.InDelta(t, 0.75, res.Frame.Landmarks[pose.Nose].Visibility, 1e-9)
}

func TestProcess_DegeneratePointsIsolated(t *testing.T) {
	t.Parallel()

	P1, _ := testutil.StereoRig(testBaseline)
	// Zero projections make every normal-equations matrix singular.
	calib := &Calibration{
		ImageWidth:   testWidth,
		ImageHeight:  testHeight,
		IsCalibrated: true,
	}
	p := &Processor{cfg: DefaultConfig(), calib: calib, clock: timeutil.RealClock{}, perf: newPerfWindow(3)}

	world := testutil.StandingFrame(0)
	f1 := testutil.ProjectFrame(t, world, P1, testWidth, testHeight)
	res, err := p.Process3DPose(&f1, &f1, 0)
	require.NoError(t, err)
	assert.Len(t, res.PointErrors, pose.NumLandmarks)
	for _, perr := range res.PointErrors {
		assert.True(t, errors.Is(perr, geom.ErrDegenerate))
	}
	assert.Equal(t, 0.0, res.Confidence)
}

func TestProcess_PerformanceStats(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	clock.SetStep(5 * time.Millisecond)
	cfg := DefaultConfig()
	cfg.PerformanceWindow = 3
	p, err := NewProcessor(testRig(t), cfg, clock)
	require.NoError(t, err)

	f1, f2 := projectPair(t, testutil.StandingFrame(0))
	var res *Result
	for i := 0; i < 5; i++ {
		res, err = p.Process3DPose(&f1, &f2, int64(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5*time.Millisecond, res.ProcessingTime)
	want := PerformanceStats{Samples: 3, Mean: 5 * time.Millisecond, Max: 5 * time.Millisecond, FPS: 200}
	if diff := cmp.Diff(want, res.Stats, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}

	p.Reset()
	res, err = p.Process3DPose(&f1, &f2, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Samples)
}

func TestProcess_EMASmoothing(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.5
	p := newTestProcessor(t, cfg)

	world := testutil.StandingFrame(0)
	f1, f2 := projectPair(t, world)
	_, err := p.Process3DPose(&f1, &f2, 0)
	require.NoError(t, err)

	testutil.Translate(&world, geom.Vec3{Y: 0.1})
	f1, f2 = projectPair(t, world)
	res, err := p.Process3DPose(&f1, &f2, 1)
	require.NoError(t, err)
	assert.InDelta(t, world.Point(pose.Nose).Y-0.05, res.Frame.Point(pose.Nose).Y, 2e-3)
}

func TestConfigFromTuningDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 1.1, cfg.ThighShankRatio)
	assert.Equal(t, 0.3, cfg.ThighShankTolerance)
	assert.Equal(t, 3, cfg.Decimals)
	assert.Equal(t, 30.0, cfg.FullWeightAngleDeg)
	assert.Equal(t, 30, cfg.PerformanceWindow)
}
