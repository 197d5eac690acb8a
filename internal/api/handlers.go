package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/banshee-data/movement.screen/internal/httputil"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/report"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/stereo"
)

// FramesResponse is returned for a posted test frame batch.
type FramesResponse struct {
	Frames   int                      `json:"frames"`
	Analyses []*session.FrameAnalysis `json:"analyses"`
}

// LandingResponse is returned for a posted landing frame batch.
type LandingResponse struct {
	Frames int             `json:"frames"`
	Trials []landing.Trial `json:"trials"`
	// Confidence holds the stereo confidence per pair, when triangulated.
	Confidence []float64 `json:"confidence,omitempty"`
}

// StereoPair is one line of a stereo frame batch.
type StereoPair struct {
	Left  pose.Frame `json:"left"`
	Right pose.Frame `json:"right"`
}

// OverrideRequest is the body of a manual score override.
type OverrideRequest struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// PainRequest is the body of a pain report.
type PainRequest struct {
	Pain   bool   `json:"pain"`
	Reason string `json:"reason"`
}

func (s *Server) listTests(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, metrics.Catalog)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httputil.BadRequest(w, "invalid session request: "+err.Error())
			return
		}
	}
	id, err := s.CreateSession(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	e.mu.Lock()
	summary := e.s.Summary()
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, summary, s.opts.Clock.Now()); err != nil {
		logf("session %s: %v", summary.SessionID, err)
	}
}

func (s *Server) postTestFrames(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	testID := r.PathValue("test")

	e.mu.Lock()
	defer e.mu.Unlock()
	resp := FramesResponse{Analyses: []*session.FrameAnalysis{}}
	n, err := readFrames(w, r, func(f pose.Frame) error {
		a, err := e.s.AnalyzeFrame(testID, f)
		if err != nil {
			return err
		}
		resp.Analyses = append(resp.Analyses, a)
		return nil
	})
	// Frames analysed before a failure still count toward scoring.
	e.analyses[testID] = append(e.analyses[testID], resp.Analyses...)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Frames = n
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) scoreTest(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	testID := r.PathValue("test")

	e.mu.Lock()
	defer e.mu.Unlock()
	score, err := e.s.ScoreTest(testID, e.analyses[testID])
	if err != nil {
		writeError(w, err)
		return
	}
	delete(e.analyses, testID)
	httputil.WriteJSONOK(w, score)
}

func (s *Server) overrideScore(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid override: "+err.Error())
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	score, err := e.s.Override(r.PathValue("test"), req.Score, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, score)
}

func (s *Server) reportPain(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req PainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid pain report: "+err.Error())
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	score, err := e.s.ReportPain(r.PathValue("test"), req.Pain, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, score)
}

func (s *Server) postLandingFrames(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	resp := LandingResponse{Trials: []landing.Trial{}}
	n, err := readFrames(w, r, func(f pose.Frame) error {
		t, err := e.s.AddFrame3D(f)
		if t != nil {
			resp.Trials = append(resp.Trials, *t)
		}
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Frames = n
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) postStereoFrames(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if s.opts.Calibration == nil {
		writeError(w, stereo.ErrNotCalibrated)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	resp := LandingResponse{Trials: []landing.Trial{}}
	n, err := decodeBatch(w, r, func(pair *StereoPair) error {
		pair.Left.EnsureConfidence()
		pair.Right.EnsureConfidence()
		res, err := e.s.ProcessStereo(&pair.Left, &pair.Right, pair.Left.Timestamp)
		if err != nil {
			return err
		}
		resp.Confidence = append(resp.Confidence, res.Result.Confidence)
		if res.Trial != nil {
			resp.Trials = append(resp.Trials, *res.Trial)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Frames = n
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	e.mu.Lock()
	summary := e.s.Summary()
	samples := e.s.LandingSamples()
	e.mu.Unlock()

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch r.PathValue("artifact") {
	case report.WorkbookFile:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = report.WriteWorkbook(&buf, summary)
	case report.VelocityFile:
		if len(samples) == 0 {
			httputil.NotFound(w, "no landing samples")
			return
		}
		contentType = "image/png"
		err = report.WriteVelocityPNG(&buf, samples, summary.Trials, s.detector)
	case report.RiskFile:
		contentType = "text/html; charset=utf-8"
		err = report.WriteRiskChart(&buf, summary.SessionID, summary.Trials, summary.Assessment)
	default:
		httputil.NotFound(w, "unknown report "+r.PathValue("artifact"))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}
