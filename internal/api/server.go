// Package api serves screening sessions over HTTP. Each session is driven
// by posting frame batches as JSON arrays; frames inside a batch are
// decoded and analysed one at a time in order.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/httputil"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/scoring"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/stereo"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

var logf = monitoring.Subsystem("api")

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxBatchBytes bounds one posted frame batch.
const maxBatchBytes = 64 << 20

// Options configures a Server. Zero fields take the session defaults.
type Options struct {
	Tuning      *config.TuningConfig
	Store       session.Store
	Calibration *stereo.Calibration
	Clock       timeutil.Clock
}

// Server holds the live sessions.
type Server struct {
	opts     Options
	detector landing.DetectorConfig

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry serialises access to one session, which is not safe for
// concurrent use, and keeps its per-test frame analyses until scoring.
type entry struct {
	mu       sync.Mutex
	s        *session.Session
	analyses map[string][]*session.FrameAnalysis
}

// NewServer returns a Server creating sessions from opts.
func NewServer(opts Options) *Server {
	if opts.Tuning == nil {
		opts.Tuning = config.EmptyTuningConfig()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Server{
		opts:     opts,
		detector: landing.DetectorConfigFromTuning(opts.Tuning),
		sessions: make(map[string]*entry),
	}
}

// CreateSession starts a session with id, or a random id when empty.
func (s *Server) CreateSession(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return "", fmt.Errorf("%w: %s", errSessionExists, id)
	}
	sess, err := session.New(session.Options{
		ID:          id,
		Tuning:      s.opts.Tuning,
		Store:       s.opts.Store,
		Clock:       s.opts.Clock,
		Calibration: s.opts.Calibration,
	})
	if err != nil {
		return "", err
	}
	s.sessions[id] = &entry{s: sess, analyses: make(map[string][]*session.FrameAnalysis)}
	return id, nil
}

func (s *Server) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return e, nil
}

var (
	errSessionExists   = errors.New("session already exists")
	errSessionNotFound = errors.New("session not found")
)

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errSessionNotFound), errors.Is(err, metrics.ErrUnknownTest),
		errors.Is(err, session.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, errSessionExists), errors.Is(err, session.ErrAlreadyScored),
		errors.Is(err, session.ErrNotScored), errors.Is(err, stereo.ErrNotCalibrated):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, session.ErrNoFrames), errors.Is(err, scoring.ErrInvalidScore),
		errors.Is(err, errBadRequest):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, v...))
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tests", s.listTests)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("POST /api/sessions/{id}/tests/{test}/frames", s.postTestFrames)
	mux.HandleFunc("POST /api/sessions/{id}/tests/{test}/score", s.scoreTest)
	mux.HandleFunc("POST /api/sessions/{id}/tests/{test}/override", s.overrideScore)
	mux.HandleFunc("POST /api/sessions/{id}/tests/{test}/pain", s.reportPain)
	mux.HandleFunc("POST /api/sessions/{id}/landing/frames", s.postLandingFrames)
	mux.HandleFunc("POST /api/sessions/{id}/stereo/frames", s.postStereoFrames)
	mux.HandleFunc("GET /api/sessions/{id}/report/{artifact}", s.showReport)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// decodeBatch streams the elements of a JSON array body, calling fn for
// each element before decoding the next. It returns the number of elements
// handled. An empty array is a bad request.
func decodeBatch[T any](w http.ResponseWriter, r *http.Request, fn func(v *T) error) (int, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	tok, err := dec.Token()
	if err != nil {
		return 0, badRequest("batch must be a JSON array: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return 0, badRequest("batch must be a JSON array")
	}

	n := 0
	for dec.More() {
		var v T
		if err := dec.Decode(&v); err != nil {
			return n, badRequest("item %d: %v", n, err)
		}
		if err := fn(&v); err != nil {
			return n, err
		}
		n++
	}
	if _, err := dec.Token(); err != nil {
		return n, badRequest("unterminated batch: %v", err)
	}
	if n == 0 {
		return 0, badRequest("empty batch")
	}
	return n, nil
}

// readFrames decodes a frame batch, calling fn for each frame before
// decoding the next.
func readFrames(w http.ResponseWriter, r *http.Request, fn func(pose.Frame) error) (int, error) {
	return decodeBatch(w, r, func(f *pose.Frame) error {
		f.EnsureConfidence()
		return fn(*f)
	})
}
