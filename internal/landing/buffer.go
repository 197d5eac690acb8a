package landing

import (
	"github.com/banshee-data/movement.screen/internal/pose"
)

// Sample is one buffered frame with its derived centre-of-mass signal.
type Sample struct {
	Seq       int     `json:"seq"`
	Timestamp int64   `json:"timestamp"`
	COM       float64 `json:"com"`      // hip midpoint height
	Velocity  float64 `json:"velocity"` // units per second, negative is downwards
	// Occluded marks a frame whose hips were hidden; COM and Velocity are
	// held from the previous sample.
	Occluded bool       `json:"occluded,omitempty"`
	Frame    pose.Frame `json:"-"`
}

// ring is a fixed-capacity buffer of samples, oldest first.
type ring struct {
	buf   []Sample
	head  int // index of the oldest sample
	count int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) len() int { return r.count }

func (r *ring) at(i int) *Sample { return &r.buf[(r.head+i)%len(r.buf)] }

func (r *ring) last() *Sample {
	if r.count == 0 {
		return nil
	}
	return r.at(r.count - 1)
}

// rangeSeq returns the buffered samples with start <= Seq <= end, oldest
// first. Samples already evicted are skipped.
func (r *ring) rangeSeq(start, end int) []Sample {
	var out []Sample
	for i := 0; i < r.count; i++ {
		s := r.at(i)
		if s.Seq >= start && s.Seq <= end {
			out = append(out, *s)
		}
	}
	return out
}

func (r *ring) snapshot() []Sample {
	out := make([]Sample, r.count)
	for i := range out {
		out[i] = *r.at(i)
	}
	return out
}

func (r *ring) reset() {
	r.head, r.count = 0, 0
}
