package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/report"
	"github.com/banshee-data/movement.screen/internal/scoring"
	"github.com/banshee-data/movement.screen/internal/stereo"
	"github.com/banshee-data/movement.screen/internal/testutil"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

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

func framesBody(t *testing.T, frames []pose.Frame) io.Reader {
	t.Helper()
	return jsonBody(t, frames)
}

func linesBody(t *testing.T, frames []pose.Frame) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, pose.WriteFrames(&buf, frames))
	return &buf
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func newTestServer(t *testing.T, calib *stereo.Calibration) *httptest.Server {
	t.Helper()
	s := NewServer(Options{
		Calibration: calib,
		Clock:       timeutil.NewMockClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)),
	})
	ts := httptest.NewServer(LoggingMiddleware(s.ServeMux()))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createSession(t *testing.T, ts *httptest.Server, id string) string {
	t.Helper()
	resp, body := do(t, http.MethodPost, ts.URL+"/api/sessions", jsonBody(t, map[string]string{"id": id}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out["id"]
}

func TestListTests(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/tests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tests []metrics.Test
	require.NoError(t, json.Unmarshal(body, &tests))
	assert.Len(t, tests, 7)
}

func TestCreateSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	assert.Equal(t, "s1", createSession(t, ts, "s1"))
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/sessions", jsonBody(t, map[string]string{"id": "s1"}))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(body), `"id"`)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/sessions", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScreeningFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	id := createSession(t, ts, "flow")
	base := ts.URL + "/api/sessions/" + id

	resp, body := do(t, http.MethodPost, base+"/tests/deep_squat/frames",
		framesBody(t, []pose.Frame{testutil.StandingFrame(0), testutil.StandingFrame(int64(frameStep))}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var frames FramesResponse
	require.NoError(t, json.Unmarshal(body, &frames))
	assert.Equal(t, 2, frames.Frames)
	require.Len(t, frames.Analyses, 2)
	assert.NotEmpty(t, frames.Analyses[0].Results)

	resp, body = do(t, http.MethodPost, base+"/tests/deep_squat/score", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var score scoring.AssessmentScore
	require.NoError(t, json.Unmarshal(body, &score))
	assert.Equal(t, "deep_squat", score.TestID)

	resp, _ = do(t, http.MethodPost, base+"/tests/deep_squat/score", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/tests/deep_squat/override",
		jsonBody(t, OverrideRequest{Score: 1, Reason: "heels lifted"}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &score))
	assert.Equal(t, 1, score.FinalScore())

	resp, _ = do(t, http.MethodPost, base+"/tests/deep_squat/override", jsonBody(t, OverrideRequest{Score: 4}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/tests/deep_squat/pain", jsonBody(t, PainRequest{Pain: true}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &score))
	assert.Equal(t, 0, score.FinalScore())
	assert.Equal(t, scoring.PainReason, score.OverrideReason)

	resp, body = do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := report.ReadJSON(bytes.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Summary.Scores, 1)
	assert.Equal(t, 0, doc.Summary.Composite)
	assert.Len(t, doc.Summary.Scores[0].Audit, 2)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	createSession(t, ts, "errs")

	tests := []struct {
		name   string
		method string
		path   string
		body   io.Reader
		status int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound},
		{"unknown test", http.MethodPost, "/api/sessions/errs/tests/cartwheel/frames",
			framesBody(t, []pose.Frame{testutil.StandingFrame(0)}), http.StatusNotFound},
		{"bad frames", http.MethodPost, "/api/sessions/errs/tests/deep_squat/frames",
			strings.NewReader("[{oops"), http.StatusBadRequest},
		{"frames not an array", http.MethodPost, "/api/sessions/errs/tests/deep_squat/frames",
			linesBody(t, []pose.Frame{testutil.StandingFrame(0), testutil.StandingFrame(1)}), http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/sessions/errs/tests/deep_squat/frames",
			strings.NewReader(""), http.StatusBadRequest},
		{"empty batch", http.MethodPost, "/api/sessions/errs/tests/deep_squat/frames",
			strings.NewReader("[]"), http.StatusBadRequest},
		{"unterminated batch", http.MethodPost, "/api/sessions/errs/tests/active_straight_leg_raise/frames",
			strings.NewReader(`[{"timestamp": 0}`), http.StatusBadRequest},
		{"empty landing batch", http.MethodPost, "/api/sessions/errs/landing/frames",
			strings.NewReader(" [ ] "), http.StatusBadRequest},
		{"score without frames", http.MethodPost, "/api/sessions/errs/tests/hurdle_step/score", nil, http.StatusBadRequest},
		{"override unscored", http.MethodPost, "/api/sessions/errs/tests/inline_lunge/override",
			jsonBody(t, OverrideRequest{Score: 2}), http.StatusConflict},
		{"bad override body", http.MethodPost, "/api/sessions/errs/tests/inline_lunge/override",
			strings.NewReader("nope"), http.StatusBadRequest},
		{"stereo uncalibrated", http.MethodPost, "/api/sessions/errs/stereo/frames",
			strings.NewReader(""), http.StatusConflict},
		{"unknown report", http.MethodGet, "/api/sessions/errs/report/notes.txt", nil, http.StatusNotFound},
		{"velocity without samples", http.MethodGet, "/api/sessions/errs/report/velocity.png", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/sessions/errs", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestLandingFlowAndReports(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	base := ts.URL + "/api/sessions/" + createSession(t, ts, "landing")

	resp, body := do(t, http.MethodPost, base+"/landing/frames", framesBody(t, dropJump()))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out LandingResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 45, out.Frames)
	require.Len(t, out.Trials, 1)
	assert.Equal(t, 10, out.Trials[0].Phase.Start)
	assert.Equal(t, "landing", out.Trials[0].SessionID)

	resp, body = do(t, http.MethodGet, base+"/report/"+report.VelocityFile, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, body = do(t, http.MethodGet, base+"/report/"+report.RiskFile, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Landing risk score")

	resp, body = do(t, http.MethodGet, base+"/report/"+report.WorkbookFile, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx is a zip archive")
}

func TestStereoFrames(t *testing.T) {
	t.Parallel()
	P1, P2 := testutil.StereoRig(0.3)
	calib, err := stereo.FromProjections(P1, P2, 1280, 720)
	require.NoError(t, err)
	ts := newTestServer(t, calib)
	base := ts.URL + "/api/sessions/" + createSession(t, ts, "stereo")

	var pairs []StereoPair
	for _, f := range dropJump() {
		pairs = append(pairs, StereoPair{
			Left:  testutil.ProjectFrame(t, f, P1, 1280, 720),
			Right: testutil.ProjectFrame(t, f, P2, 1280, 720),
		})
	}

	resp, body := do(t, http.MethodPost, base+"/stereo/frames", strings.NewReader("[]"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPost, base+"/stereo/frames", jsonBody(t, pairs))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out LandingResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 45, out.Frames)
	assert.Len(t, out.Confidence, 45)
	require.Len(t, out.Trials, 1)
	assert.Equal(t, 30, out.Trials[0].Phase.End)
}
