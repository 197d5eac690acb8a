package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/movement.screen/internal/scoring"
)

// ScoreStore persists assessment scores and their audit trail.
type ScoreStore struct {
	db *sql.DB
}

// NewScoreStore returns a ScoreStore on db.
func NewScoreStore(db *sql.DB) *ScoreStore {
	return &ScoreStore{db: db}
}

// SaveScore inserts or updates the score and replaces its audit rows.
func (s *ScoreStore) SaveScore(score *scoring.AssessmentScore) error {
	if score == nil || score.ID == "" {
		return fmt.Errorf("save score: missing id")
	}
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		var manual sql.NullInt64
		if score.ManualScore != nil {
			manual = sql.NullInt64{Int64: int64(*score.ManualScore), Valid: true}
		}
		_, err = tx.Exec(`
			INSERT INTO assessment_scores (
				score_id, session_id, test_id, automatic_score, manual_score,
				override_reason, pain, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(score_id) DO UPDATE SET
				automatic_score = excluded.automatic_score,
				manual_score = excluded.manual_score,
				override_reason = excluded.override_reason,
				pain = excluded.pain`,
			score.ID, score.SessionID, score.TestID, score.AutomaticScore, manual,
			score.OverrideReason, boolToInt(score.Pain), score.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("upsert score %s: %w", score.ID, err)
		}

		if _, err := tx.Exec(`DELETE FROM score_audit WHERE score_id = ?`, score.ID); err != nil {
			return fmt.Errorf("clear audit %s: %w", score.ID, err)
		}
		for i, c := range score.Audit {
			_, err := tx.Exec(`
				INSERT INTO score_audit (score_id, seq, changed_at, from_score, to_score, reason)
				VALUES (?, ?, ?, ?, ?, ?)`,
				score.ID, i, c.Timestamp.UnixNano(), c.From, c.To, c.Reason)
			if err != nil {
				return fmt.Errorf("insert audit %s/%d: %w", score.ID, i, err)
			}
		}
		return tx.Commit()
	})
}

// LoadScore returns the score with the given id or ErrNotFound.
func (s *ScoreStore) LoadScore(id string) (*scoring.AssessmentScore, error) {
	row := s.db.QueryRow(scoreSelect+` WHERE score_id = ?`, id)
	score, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load score %s: %w", id, err)
	}
	if err := s.loadAudit(score); err != nil {
		return nil, err
	}
	return score, nil
}

// ListScores returns the session's scores ordered by creation time.
func (s *ScoreStore) ListScores(sessionID string) ([]*scoring.AssessmentScore, error) {
	rows, err := s.db.Query(scoreSelect+` WHERE session_id = ? ORDER BY created_at, test_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	var out []*scoring.AssessmentScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, score)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Audit rows are loaded after the cursor is closed.
	for _, score := range out {
		if err := s.loadAudit(score); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const scoreSelect = `
	SELECT score_id, session_id, test_id, automatic_score, manual_score,
		override_reason, pain, created_at
	FROM assessment_scores`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(r rowScanner) (*scoring.AssessmentScore, error) {
	var (
		score   scoring.AssessmentScore
		manual  sql.NullInt64
		pain    int
		created int64
	)
	err := r.Scan(&score.ID, &score.SessionID, &score.TestID, &score.AutomaticScore,
		&manual, &score.OverrideReason, &pain, &created)
	if err != nil {
		return nil, err
	}
	if manual.Valid {
		v := int(manual.Int64)
		score.ManualScore = &v
	}
	score.Pain = pain != 0
	score.CreatedAt = time.Unix(0, created).UTC()
	return &score, nil
}

func (s *ScoreStore) loadAudit(score *scoring.AssessmentScore) error {
	rows, err := s.db.Query(`
		SELECT changed_at, from_score, to_score, reason
		FROM score_audit WHERE score_id = ? ORDER BY seq`, score.ID)
	if err != nil {
		return fmt.Errorf("load audit %s: %w", score.ID, err)
	}
	defer rows.Close()

	score.Audit = nil
	for rows.Next() {
		var (
			c  scoring.ScoreChange
			at int64
		)
		if err := rows.Scan(&at, &c.From, &c.To, &c.Reason); err != nil {
			return fmt.Errorf("scan audit: %w", err)
		}
		c.Timestamp = time.Unix(0, at).UTC()
		score.Audit = append(score.Audit, c)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
