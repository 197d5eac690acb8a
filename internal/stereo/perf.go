package stereo

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerformanceStats summarises recent processing times. It is a snapshot;
// later calls do not mutate it.
type PerformanceStats struct {
	Samples int           `json:"samples"`
	Mean    time.Duration `json:"mean"`
	StdDev  time.Duration `json:"std_dev"`
	Max     time.Duration `json:"max"`
	// FPS is the sustainable frame rate at the mean processing time.
	FPS float64 `json:"fps"`
}

// perfWindow is a fixed-size ring of recent processing times.
type perfWindow struct {
	samples []float64 // nanoseconds
	next    int
	full    bool
}

func newPerfWindow(size int) *perfWindow {
	if size < 1 {
		size = 1
	}
	return &perfWindow{samples: make([]float64, size)}
}

func (w *perfWindow) add(d time.Duration) {
	w.samples[w.next] = float64(d)
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *perfWindow) window() []float64 {
	if w.full {
		return w.samples
	}
	return w.samples[:w.next]
}

func (w *perfWindow) stats() PerformanceStats {
	xs := w.window()
	if len(xs) == 0 {
		return PerformanceStats{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	var max float64
	for _, x := range xs {
		if x > max {
			max = x
		}
	}
	s := PerformanceStats{
		Samples: len(xs),
		Mean:    time.Duration(mean),
		StdDev:  time.Duration(std),
		Max:     time.Duration(max),
	}
	if mean > 0 {
		s.FPS = float64(time.Second) / mean
	}
	return s
}
