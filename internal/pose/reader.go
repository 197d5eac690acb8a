package pose

import (
	"encoding/json"
	"fmt"
	"io"
)

// FrameReader decodes a stream of JSON frames (one object per line, or any
// whitespace-separated sequence) one frame at a time so callers can finish a
// frame's analysis before reading the next.
type FrameReader struct {
	dec   *json.Decoder
	count int
}

// NewFrameReader returns a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{dec: json.NewDecoder(r)}
}

// Next returns the next frame or io.EOF when the stream is exhausted.
// Frames without a confidence value get one computed from visibilities.
func (fr *FrameReader) Next() (Frame, error) {
	var f Frame
	if err := fr.dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("decode frame %d: %w", fr.count, err)
	}
	fr.count++
	f.EnsureConfidence()
	return f, nil
}

// Count returns the number of frames decoded so far.
func (fr *FrameReader) Count() int { return fr.count }

// WriteFrames encodes frames as JSON lines.
func WriteFrames(w io.Writer, frames []Frame) error {
	enc := json.NewEncoder(w)
	for i := range frames {
		if err := enc.Encode(&frames[i]); err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
	}
	return nil
}
