package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/movement.screen/internal/landing"
)

// TrialStore persists drop-jump trials.
type TrialStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewTrialStore returns a TrialStore on db.
func NewTrialStore(db *sql.DB) *TrialStore {
	return &TrialStore{db: db, now: time.Now}
}

// SaveTrial inserts the trial. Saving the same trial id twice replaces the
// earlier row.
func (s *TrialStore) SaveTrial(trial *landing.Trial) error {
	if trial == nil || trial.ID == "" {
		return fmt.Errorf("save trial: missing id")
	}
	metrics, err := json.Marshal(trial.Metrics)
	if err != nil {
		return fmt.Errorf("marshal trial metrics: %w", err)
	}
	p := trial.Phase
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO drop_jump_trials (
				trial_id, session_id, phase_start, phase_impact, phase_end,
				start_time, end_time, duration_ns, max_velocity, metrics_json,
				risk_score, risk, risk_factors, confidence, inserted_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trial.ID, trial.SessionID, p.Start, p.Impact, p.End,
			p.StartTime, p.EndTime, int64(p.Duration), p.MaxVelocity, string(metrics),
			trial.RiskScore, string(trial.Risk), strings.Join(trial.RiskFactors, ","),
			trial.Confidence, s.now().UnixNano())
		if err != nil {
			return fmt.Errorf("insert trial %s: %w", trial.ID, err)
		}
		return nil
	})
}

// ListTrials returns the session's trials in detection order.
func (s *TrialStore) ListTrials(sessionID string) ([]landing.Trial, error) {
	rows, err := s.db.Query(`
		SELECT trial_id, session_id, phase_start, phase_impact, phase_end,
			start_time, end_time, duration_ns, max_velocity, metrics_json,
			risk_score, risk, risk_factors, confidence
		FROM drop_jump_trials
		WHERE session_id = ?
		ORDER BY phase_start, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	defer rows.Close()

	var out []landing.Trial
	for rows.Next() {
		var (
			t        landing.Trial
			duration int64
			metrics  string
			risk     string
			factors  string
		)
		err := rows.Scan(&t.ID, &t.SessionID, &t.Phase.Start, &t.Phase.Impact, &t.Phase.End,
			&t.Phase.StartTime, &t.Phase.EndTime, &duration, &t.Phase.MaxVelocity, &metrics,
			&t.RiskScore, &risk, &factors, &t.Confidence)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.Phase.Duration = time.Duration(duration)
		t.Risk = landing.Risk(risk)
		if factors != "" {
			t.RiskFactors = strings.Split(factors, ",")
		}
		if err := json.Unmarshal([]byte(metrics), &t.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics for trial %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
