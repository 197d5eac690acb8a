package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/db"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/pose"
	"github.com/banshee-data/movement.screen/internal/report"
	"github.com/banshee-data/movement.screen/internal/security"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/stereo"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// sessionFlags are shared by the analysis subcommands.
type sessionFlags struct {
	dbPath    string
	tuning    string
	sessionID string
	outDir    string
}

func (f *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path (empty keeps results in memory)")
	fs.StringVar(&f.tuning, "tuning", "", "Tuning configuration JSON file")
	fs.StringVar(&f.sessionID, "session", "", "Session id (default: random)")
	fs.StringVar(&f.outDir, "out", "", "Directory for exported reports")
}

// openSession builds a session from the flags. The returned cleanup closes
// the database when one was opened.
func (f *sessionFlags) openSession(calib *stereo.Calibration) (*session.Session, *config.TuningConfig, func(), error) {
	tuning := config.EmptyTuningConfig()
	if f.tuning != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(f.tuning); err != nil {
			return nil, nil, nil, err
		}
	}
	if f.outDir != "" {
		if err := security.ValidateExportPath(f.outDir); err != nil {
			return nil, nil, nil, err
		}
	}

	opts := session.Options{ID: f.sessionID, Tuning: tuning, Calibration: calib}
	cleanup := func() {}
	if f.dbPath != "" {
		database, err := db.Open(f.dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		opts.Store = db.NewStore(database)
		cleanup = func() { database.Close() }
	}

	s, err := session.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return s, tuning, cleanup, nil
}

func (f *sessionFlags) export(stdout io.Writer, s *session.Session, tuning *config.TuningConfig) error {
	if f.outDir == "" {
		return nil
	}
	e := report.NewExporter(f.outDir)
	e.Detector = landing.DetectorConfigFromTuning(tuning)
	written, err := e.Export(s.Summary(), s.LandingSamples())
	for _, path := range written {
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return err
}

// openFrames opens path for reading; "-" is stdin.
func openFrames(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// eachFrame decodes frames one at a time and hands each to fn before the
// next is read.
func eachFrame(r io.Reader, fn func(pose.Frame) error) (int, error) {
	fr := pose.NewFrameReader(r)
	for {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return fr.Count(), nil
		}
		if err != nil {
			return fr.Count(), err
		}
		if err := fn(f); err != nil {
			return fr.Count(), err
		}
	}
}
