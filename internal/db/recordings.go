package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/movement.screen/internal/session"
)

// RecordingStore persists captured frame sequences as opaque blobs.
type RecordingStore struct {
	db *sql.DB
}

// NewRecordingStore returns a RecordingStore on db.
func NewRecordingStore(db *sql.DB) *RecordingStore {
	return &RecordingStore{db: db}
}

// SaveRecording inserts or replaces a recording by id.
func (s *RecordingStore) SaveRecording(rec *session.Recording) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("save recording: missing id")
	}
	data := rec.Data
	if data == nil {
		data = []byte{}
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO recordings (
				recording_id, session_id, test_id, content_type, frames, data, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.SessionID, rec.TestID, rec.ContentType, rec.Frames, data,
			rec.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("insert recording %s: %w", rec.ID, err)
		}
		return nil
	})
}

// LoadRecording returns the recording or ErrNotFound.
func (s *RecordingStore) LoadRecording(id string) (*session.Recording, error) {
	var (
		rec     session.Recording
		created int64
	)
	err := s.db.QueryRow(`
		SELECT recording_id, session_id, test_id, content_type, frames, data, created_at
		FROM recordings WHERE recording_id = ?`, id).
		Scan(&rec.ID, &rec.SessionID, &rec.TestID, &rec.ContentType, &rec.Frames, &rec.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", id, err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}
