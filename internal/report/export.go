package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/movement.screen/internal/fsutil"
	"github.com/banshee-data/movement.screen/internal/landing"
	"github.com/banshee-data/movement.screen/internal/monitoring"
	"github.com/banshee-data/movement.screen/internal/security"
	"github.com/banshee-data/movement.screen/internal/session"
)

var logf = monitoring.Subsystem("report")

// Artifact file names inside a session export directory.
const (
	SummaryFile  = "summary.json"
	WorkbookFile = "summary.xlsx"
	VelocityFile = "velocity.png"
	RiskFile     = "risk.html"
)

// Exporter writes the full set of session artifacts below Dir, one
// sub-directory per session.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
	// Detector supplies the threshold lines of the velocity plot.
	Detector landing.DetectorConfig
	Now      func() time.Time
}

// NewExporter returns an Exporter writing to dir on the OS filesystem.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		FS:       fsutil.OSFileSystem{},
		Dir:      dir,
		Detector: landing.DefaultDetectorConfig(),
		Now:      time.Now,
	}
}

// SessionDir returns the export directory for sessionID.
func (e *Exporter) SessionDir(sessionID string) string {
	return filepath.Join(e.Dir, security.SanitizeFilename(sessionID))
}

// Export writes summary.json and summary.xlsx, plus velocity.png when
// samples are given and risk.html when the session has trials. It returns
// the written paths in that order.
func (e *Exporter) Export(summary session.Summary, samples []landing.Sample) ([]string, error) {
	dir := e.SessionDir(summary.SessionID)
	if err := e.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	type artifact struct {
		name  string
		write func(io.Writer) error
	}
	artifacts := []artifact{
		{SummaryFile, func(w io.Writer) error { return WriteJSON(w, summary, now()) }},
		{WorkbookFile, func(w io.Writer) error { return WriteWorkbook(w, summary) }},
	}
	if len(samples) > 0 {
		artifacts = append(artifacts, artifact{VelocityFile, func(w io.Writer) error {
			return WriteVelocityPNG(w, samples, summary.Trials, e.Detector)
		}})
	}
	if len(summary.Trials) > 0 {
		artifacts = append(artifacts, artifact{RiskFile, func(w io.Writer) error {
			return WriteRiskChart(w, summary.SessionID, summary.Trials, summary.Assessment)
		}})
	}

	var written []string
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := e.writeFile(path, a.write); err != nil {
			return written, fmt.Errorf("%s: %w", a.name, err)
		}
		written = append(written, path)
	}
	logf("exported %d artifacts for session %s to %s", len(written), summary.SessionID, dir)
	return written, nil
}

func (e *Exporter) writeFile(path string, write func(io.Writer) error) error {
	f, err := e.FS.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
