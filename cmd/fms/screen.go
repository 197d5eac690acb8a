package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/units"
)

func runScreen(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("screen", stderr)
	var sf sessionFlags
	sf.register(fs)
	testID := fs.String("test", "", "Movement test id, e.g. deep_squat (required)")
	framesPath := fs.String("frames", "-", "JSON-lines pose file, - for stdin")
	override := fs.Int("override", -1, "Clinician score 0-3 replacing the automatic score")
	reason := fs.String("reason", "", "Reason recorded with -override or -pain")
	pain := fs.Bool("pain", false, "Pain reported during the test")
	record := fs.Bool("record", false, "Store the frames as a recording")
	verbose := fs.Bool("v", false, "Print every frame's metric results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *testID == "" {
		fs.Usage()
		return fmt.Errorf("-test is required")
	}

	s, tuning, cleanup, err := sf.openSession(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	test, err := findTest(s, *testID)
	if err != nil {
		return err
	}

	r, err := openFrames(*framesPath)
	if err != nil {
		return err
	}
	defer r.Close()

	var (
		analyses []*session.FrameAnalysis
		frames   []pose.Frame
	)
	n, err := eachFrame(r, func(f pose.Frame) error {
		a, err := s.AnalyzeFrame(test.ID, f)
		if err != nil {
			return err
		}
		analyses = append(analyses, a)
		if *record {
			frames = append(frames, f)
		}
		if *verbose {
			printResults(stdout, a, test)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("frame %d: %w", n, err)
	}

	score, err := s.ScoreTest(test.ID, analyses)
	if err != nil {
		return err
	}
	if *override >= 0 {
		if score, err = s.Override(test.ID, *override, *reason); err != nil {
			return err
		}
	}
	if *pain {
		if score, err = s.ReportPain(test.ID, true, *reason); err != nil {
			return err
		}
	}
	if *record {
		rec, err := s.SaveRecording(test.ID, frames)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recording %s (%d frames)\n", rec.ID, rec.Frames)
	}

	fmt.Fprintf(stdout, "session %s\n", s.ID())
	fmt.Fprintf(stdout, "%s: %d frames, automatic %d, final %d", test.Name, n, score.AutomaticScore, score.FinalScore())
	if score.Pain {
		fmt.Fprint(stdout, " (pain)")
	} else if score.Overridden() {
		fmt.Fprintf(stdout, " (override: %s)", score.OverrideReason)
	}
	fmt.Fprintln(stdout)

	return sf.export(stdout, s, tuning)
}

func findTest(s *session.Session, id string) (metrics.Test, error) {
	if t, ok := metrics.FindTest(s.Tests(), id); ok {
		return t, nil
	}
	var ids []string
	for _, t := range s.Tests() {
		ids = append(ids, t.ID)
	}
	return metrics.Test{}, fmt.Errorf("%w: %q (known: %v)", metrics.ErrUnknownTest, id, ids)
}

func printResults(w io.Writer, a *session.FrameAnalysis, test metrics.Test) {
	unitOf := make(map[string]string, len(test.Metrics))
	for _, d := range test.Metrics {
		unitOf[d.ID] = d.Unit
	}
	fmt.Fprintf(w, "t=%d score=%d\n", a.Timestamp, a.Score)
	for _, r := range a.Results {
		fmt.Fprintf(w, "  %-24s %10s  %-7s conf=%.0f%%\n",
			r.MetricID, units.Format(r.ActualValue, unitOf[r.MetricID]), r.Status, r.Confidence)
	}
}
