package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/stereo"
)

func runDropJump(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("dropjump", stderr)
	var sf sessionFlags
	sf.register(fs)
	calibPath := fs.String("calib", "", "Stereo calibration JSON")
	left := fs.String("left", "", "JSON-lines pose file from camera 1")
	right := fs.String("right", "", "JSON-lines pose file from camera 2")
	frames3D := fs.String("frames3d", "", "JSON-lines file of already triangulated 3D frames")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stereoMode := *calibPath != "" || *left != "" || *right != ""
	switch {
	case stereoMode && *frames3D != "":
		return fmt.Errorf("use either -calib/-left/-right or -frames3d")
	case stereoMode && (*calibPath == "" || *left == "" || *right == ""):
		return fmt.Errorf("-calib, -left and -right are all required")
	case !stereoMode && *frames3D == "":
		fs.Usage()
		return fmt.Errorf("no input frames")
	}

	var calib *stereo.Calibration
	if stereoMode {
		var err error
		if calib, err = stereo.LoadCalibration(*calibPath); err != nil {
			return err
		}
	}

	s, tuning, cleanup, err := sf.openSession(calib)
	if err != nil {
		return err
	}
	defer cleanup()

	onTrial := func(t *landing.Trial) {
		if t != nil {
			printTrial(stdout, t)
		}
	}
	if stereoMode {
		err = feedStereo(s, *left, *right, onTrial)
	} else {
		err = feed3D(s, *frames3D, onTrial)
	}
	if err != nil {
		return err
	}

	sum := s.Summary()
	a := sum.Assessment
	fmt.Fprintf(stdout, "session %s: %d trials (high %d, moderate %d, low %d), overall %s\n",
		sum.SessionID, a.Trials, a.High, a.Moderate, a.Low, a.Overall)
	return sf.export(stdout, s, tuning)
}

var logf = monitoring.Subsystem("fms")

func feed3D(s *session.Session, path string, onTrial func(*landing.Trial)) error {
	r, err := openFrames(path)
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := eachFrame(r, func(f pose.Frame) error {
		t, err := s.AddFrame3D(f)
		onTrial(t)
		return err
	})
	if err != nil {
		return fmt.Errorf("frame %d: %w", n, err)
	}
	return nil
}

// errCameraEnded stops the lockstep read when the second stream runs out.
var errCameraEnded = errors.New("camera 2 stream ended")

// feedStereo reads the two camera streams in lockstep. The pair takes the
// first camera's timestamp. Input ends with the shorter stream; frames left
// in the longer one are ignored.
func feedStereo(s *session.Session, leftPath, rightPath string, onTrial func(*landing.Trial)) error {
	lf, err := openFrames(leftPath)
	if err != nil {
		return err
	}
	defer lf.Close()
	rf, err := openFrames(rightPath)
	if err != nil {
		return err
	}
	defer rf.Close()

	right := pose.NewFrameReader(rf)
	n, err := eachFrame(lf, func(f1 pose.Frame) error {
		f2, err := right.Next()
		if errors.Is(err, io.EOF) {
			return errCameraEnded
		}
		if err != nil {
			return fmt.Errorf("camera 2: %w", err)
		}
		res, err := s.ProcessStereo(&f1, &f2, f1.Timestamp)
		if err != nil {
			return err
		}
		if len(res.Result.PointErrors) > 0 {
			logf("frame %d: %d landmarks failed to triangulate", f1.Timestamp, len(res.Result.PointErrors))
		}
		onTrial(res.Trial)
		return nil
	})
	if errors.Is(err, errCameraEnded) {
		logf("camera 2 ended after %d frames; stopping", right.Count())
		return nil
	}
	if err != nil {
		return fmt.Errorf("frame %d: %w", n, err)
	}
	return nil
}

func printTrial(w io.Writer, t *landing.Trial) {
	m := t.Metrics
	fmt.Fprintf(w, "trial %s frames %d-%d (impact %d) %dms peak %.2f: valgus L %.1f R %.1f, risk %d %s",
		t.ID, t.Phase.Start, t.Phase.End, t.Phase.Impact, t.Phase.Duration.Milliseconds(),
		t.Phase.MaxVelocity, m.LeftValgus, m.RightValgus, t.RiskScore, t.Risk)
	if len(t.RiskFactors) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(t.RiskFactors, ", "))
	}
	if len(m.Unmeasured) > 0 {
		fmt.Fprintf(w, " unmeasured: %s", strings.Join(m.Unmeasured, ", "))
	}
	fmt.Fprintln(w)
}
