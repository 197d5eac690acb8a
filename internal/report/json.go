package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/movement.screen/internal/session"
)

// FormatVersion is written into every exported document.
const FormatVersion = 1

// Document is the JSON export envelope.
type Document struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     session.Summary `json:"summary"`
}

// WriteJSON writes summary as an indented JSON document.
func WriteJSON(w io.Writer, summary session.Summary, generatedAt time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := Document{Version: FormatVersion, GeneratedAt: generatedAt.UTC(), Summary: summary}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ReadJSON reads a document written by WriteJSON.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported report version %d", doc.Version)
	}
	return &doc, nil
}
