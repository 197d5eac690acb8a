package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/joints"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/scoring"
	"github.com/banshee-data/movement.screen/internal/stereo"
	"github.com/banshee-data/movement.screen/internal/timeutil"
)

var logf = monitoring.Subsystem("session")

// FramesContentType labels recordings holding JSON-lines pose frames.
const FramesContentType = "application/x-ndjson; profile=pose-frames"

var (
	// ErrAlreadyScored is returned when a test is scored twice in a session.
	ErrAlreadyScored = errors.New("test already scored in this session")
	// ErrNotScored is returned when amending a test that has no score yet.
	ErrNotScored = errors.New("test not scored in this session")
	// ErrNoFrames is returned when scoring a test without analysed frames.
	ErrNoFrames = errors.New("no frames analysed for test")
)

// Options configures a Session. Zero fields take defaults.
type Options struct {
	ID      string
	Tuning  *config.TuningConfig
	Store   Store
	Clock   timeutil.Clock
	Scoring scoring.Options
	// Calibration enables the dual-camera path.
	Calibration *stereo.Calibration
}

// FrameAnalysis is the single-camera result for one frame of one test.
type FrameAnalysis struct {
	TestID    string              `json:"test_id"`
	Timestamp int64               `json:"timestamp"`
	Angles    []joints.JointAngle `json:"angles"`
	Results   []metrics.Result    `json:"results"`
	Score     int                 `json:"score"`
}

// StereoAnalysis is the dual-camera result for one frame pair.
type StereoAnalysis struct {
	Result *stereo.Result `json:"result"`
	// Trial is set when the pair completed a valid landing.
	Trial *landing.Trial `json:"trial,omitempty"`
}

// Summary is the session overview for reports.
type Summary struct {
	SessionID  string                     `json:"session_id"`
	Scores     []*scoring.AssessmentScore `json:"scores"`
	Composite  int                        `json:"composite"`
	Trials     []landing.Trial            `json:"trials"`
	Assessment landing.Assessment         `json:"assessment"`
}

// Session holds the state of one screening session. Frames must be fed
// one at a time; a Session is not safe for concurrent use.
type Session struct {
	id       string
	store    Store
	clock    timeutil.Clock
	scoreOpt scoring.Options

	engine    *joints.Engine
	evaluator *metrics.Evaluator
	assessor  *scoring.Assessor
	analyzer  *landing.Analyzer
	processor *stereo.Processor

	reference map[string]*pose.Frame
	scores    map[string]*scoring.AssessmentScore
	order     []string
}

// New builds a Session from opts.
func New(opts Options) (*Session, error) {
	tuning := opts.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}

	evaluator, err := metrics.NewEvaluator(metrics.ConfigFromTuning(tuning))
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:        opts.ID,
		store:     opts.Store,
		clock:     opts.Clock,
		scoreOpt:  opts.Scoring,
		engine:    joints.NewEngine(joints.ConfigFromTuning(tuning)),
		evaluator: evaluator,
		assessor:  scoring.NewAssessor(opts.Clock),
		analyzer:  landing.NewAnalyzer(landing.ConfigFromTuning(tuning)),
		reference: make(map[string]*pose.Frame),
		scores:    make(map[string]*scoring.AssessmentScore),
	}
	if opts.Calibration != nil {
		s.processor, err = stereo.NewProcessor(opts.Calibration, stereo.ConfigFromTuning(tuning), opts.Clock)
		if err != nil {
			return nil, fmt.Errorf("stereo processor: %w", err)
		}
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Tests returns the movement test catalog.
func (s *Session) Tests() []metrics.Test { return s.evaluator.Tests() }

// AnalyzeFrame computes angles, metric results and the per-frame score
// for testID. The first frame seen for a test is its reference frame.
func (s *Session) AnalyzeFrame(testID string, f pose.Frame) (*FrameAnalysis, error) {
	if _, err := s.evaluator.Test(testID); err != nil {
		return nil, err
	}
	ref, ok := s.reference[testID]
	if !ok {
		c := f
		ref = &c
		s.reference[testID] = ref
	}
	angles := s.engine.Compute(&f)
	results, err := s.evaluator.EvaluateInput(testID, metrics.Input{Frame: &f, Angles: angles, Reference: ref})
	if err != nil {
		return nil, err
	}
	return &FrameAnalysis{
		TestID:    testID,
		Timestamp: f.Timestamp,
		Angles:    angles,
		Results:   results,
		Score:     scoring.ScoreWithOptions(results, s.scoreOpt),
	}, nil
}

// ScoreTest records the automatic score for testID as the best per-frame
// score across analyses, and persists it.
func (s *Session) ScoreTest(testID string, analyses []*FrameAnalysis) (*scoring.AssessmentScore, error) {
	if _, ok := s.scores[testID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyScored, testID)
	}
	best := -1
	for _, a := range analyses {
		if a.TestID == testID && a.Score > best {
			best = a.Score
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, testID)
	}
	score := s.assessor.New(s.id, testID, best)
	if err := s.store.SaveScore(score); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}
	s.scores[testID] = score
	s.order = append(s.order, testID)
	return score, nil
}

// Override applies a clinician score to testID and persists it.
func (s *Session) Override(testID string, score int, reason string) (*scoring.AssessmentScore, error) {
	as, ok := s.scores[testID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScored, testID)
	}
	if err := s.assessor.Override(as, score, reason); err != nil {
		return nil, err
	}
	if err := s.store.SaveScore(as); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}
	return as, nil
}

// ReportPain sets or clears the pain flag for testID and persists it.
func (s *Session) ReportPain(testID string, pain bool, reason string) (*scoring.AssessmentScore, error) {
	as, ok := s.scores[testID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScored, testID)
	}
	s.assessor.SetPain(as, pain, reason)
	if err := s.store.SaveScore(as); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}
	return as, nil
}

// Score returns the score recorded for testID.
func (s *Session) Score(testID string) (*scoring.AssessmentScore, bool) {
	as, ok := s.scores[testID]
	return as, ok
}

// ProcessStereo triangulates a synchronised frame pair and feeds the 3D
// frame to the landing analyzer.
func (s *Session) ProcessStereo(f1, f2 *pose.Frame, timestamp int64) (*StereoAnalysis, error) {
	if s.processor == nil {
		return nil, stereo.ErrNotCalibrated
	}
	res, err := s.processor.Process3DPose(f1, f2, timestamp)
	if err != nil {
		return nil, err
	}
	out := &StereoAnalysis{Result: res}
	out.Trial, err = s.AddFrame3D(res.Frame)
	return out, err
}

// AddFrame3D feeds one metric 3D frame to the landing analyzer and
// persists any trial it completes.
func (s *Session) AddFrame3D(f pose.Frame) (*landing.Trial, error) {
	trial := s.analyzer.AddFrame(f)
	if trial == nil {
		return nil, nil
	}
	trial.SessionID = s.id
	if err := s.store.SaveTrial(trial); err != nil {
		return trial, fmt.Errorf("save trial: %w", err)
	}
	return trial, nil
}

// LandingSamples returns the buffered velocity samples.
func (s *Session) LandingSamples() []landing.Sample { return s.analyzer.Samples() }

// Trials returns the session's landing trials.
func (s *Session) Trials() []landing.Trial {
	trials := s.analyzer.Trials()
	for i := range trials {
		trials[i].SessionID = s.id
	}
	return trials
}

// SaveRecording stores frames as a JSON-lines recording.
func (s *Session) SaveRecording(testID string, frames []pose.Frame) (*Recording, error) {
	var buf bytes.Buffer
	if err := pose.WriteFrames(&buf, frames); err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	rec := &Recording{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		TestID:      testID,
		ContentType: FramesContentType,
		Frames:      len(frames),
		Data:        buf.Bytes(),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.SaveRecording(rec); err != nil {
		return nil, fmt.Errorf("save recording: %w", err)
	}
	logf("recording %s: %d frames for %q", rec.ID, rec.Frames, testID)
	return rec, nil
}

// LoadRecordingFrames loads a stored recording and decodes its frames.
func (s *Session) LoadRecordingFrames(id string) ([]pose.Frame, error) {
	rec, err := s.store.LoadRecording(id)
	if err != nil {
		return nil, err
	}
	return DecodeFrames(rec)
}

// DecodeFrames decodes the frames of a JSON-lines recording.
func DecodeFrames(rec *Recording) ([]pose.Frame, error) {
	if rec.ContentType != FramesContentType {
		return nil, fmt.Errorf("recording %s has content type %q", rec.ID, rec.ContentType)
	}
	r := pose.NewFrameReader(bytes.NewReader(rec.Data))
	var frames []pose.Frame
	for {
		f, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, err
		}
		frames = append(frames, f)
	}
}

// Summary returns scores in scoring order, the composite score, trials and
// the overall landing assessment.
func (s *Session) Summary() Summary {
	sum := Summary{SessionID: s.id, Trials: s.Trials()}
	for _, testID := range s.order {
		sum.Scores = append(sum.Scores, s.scores[testID])
	}
	sum.Composite = scoring.Composite(sum.Scores)
	sum.Assessment = landing.Assess(sum.Trials)
	return sum
}
