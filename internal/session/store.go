package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/scoring"
)

// ErrNotFound is returned by stores for unknown ids.
var ErrNotFound = errors.New("record not found")

// Recording is an opaque captured frame sequence kept for later review.
type Recording struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	TestID      string    `json:"test_id,omitempty"`
	ContentType string    `json:"content_type"`
	Frames      int       `json:"frames"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence port. Implementations decide the storage
// mechanism; the session only hands over finished records.
type Store interface {
	SaveScore(score *scoring.AssessmentScore) error
	LoadScore(id string) (*scoring.AssessmentScore, error)
	ListScores(sessionID string) ([]*scoring.AssessmentScore, error)
	SaveTrial(trial *landing.Trial) error
	ListTrials(sessionID string) ([]landing.Trial, error)
	SaveRecording(rec *Recording) error
	LoadRecording(id string) (*Recording, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu         sync.Mutex
	scores     map[string]scoring.AssessmentScore
	trials     []landing.Trial
	recordings map[string]Recording
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores:     make(map[string]scoring.AssessmentScore),
		recordings: make(map[string]Recording),
	}
}

// SaveScore inserts or replaces a score by id.
func (m *MemoryStore) SaveScore(score *scoring.AssessmentScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[score.ID] = cloneScore(score)
	return nil
}

// LoadScore returns a copy of the stored score.
func (m *MemoryStore) LoadScore(id string) (*scoring.AssessmentScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scores[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneScore(&s)
	return &c, nil
}

// ListScores returns the session's scores ordered by creation time.
func (m *MemoryStore) ListScores(sessionID string) ([]*scoring.AssessmentScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*scoring.AssessmentScore
	for _, s := range m.scores {
		if s.SessionID == sessionID {
			c := cloneScore(&s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TestID < out[j].TestID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveTrial appends a trial.
func (m *MemoryStore) SaveTrial(trial *landing.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trials = append(m.trials, *trial)
	return nil
}

// ListTrials returns the session's trials in insertion order.
func (m *MemoryStore) ListTrials(sessionID string) ([]landing.Trial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []landing.Trial
	for _, t := range m.trials {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveRecording inserts or replaces a recording by id.
func (m *MemoryStore) SaveRecording(rec *Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rec
	c.Data = append([]byte(nil), rec.Data...)
	m.recordings[rec.ID] = c
	return nil
}

// LoadRecording returns a stored recording.
func (m *MemoryStore) LoadRecording(id string) (*Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recordings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func cloneScore(s *scoring.AssessmentScore) scoring.AssessmentScore {
	c := *s
	if s.ManualScore != nil {
		v := *s.ManualScore
		c.ManualScore = &v
	}
	c.Audit = append([]scoring.ScoreChange(nil), s.Audit...)
	return c
}
