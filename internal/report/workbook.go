package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/movement.screen/internal/metrics"
	"github.com/banshee-data/movement.screen/internal/session"
	"github.com/banshee-data/movement.screen/internal/units"
)

// Workbook sheet names.
const (
	SheetScores     = "Scores"
	SheetTrials     = "Trials"
	SheetAssessment = "Assessment"
)

var scoreHeader = []interface{}{
	"Test", "Name", "Automatic", "Manual", "Final", "Pain", "Override reason", "Changes", "Created",
}

func trialHeader() []interface{} {
	deg := units.Symbol(units.Degrees)
	return []interface{}{
		"Trial", "Start", "Impact", "End", "Duration (ms)", "Peak velocity" + units.Symbol(units.MPS),
		"Left valgus" + deg, "Right valgus" + deg, "Valgus asymmetry" + deg,
		"Sagittal lean" + deg, "Frontal lean" + deg,
		"Left arm" + deg, "Right arm" + deg, "Arms valid",
		"Landing symmetry", "Instability", "Risk score", "Risk", "Factors",
		"Confidence" + units.Symbol(units.Percent),
	}
}

// NewWorkbook builds a workbook with one sheet each for scores, trials and
// the session assessment. The caller must Close the returned file.
func NewWorkbook(summary session.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetScores); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetTrials, SheetAssessment} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeScores(f, summary, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("scores sheet: %w", err)
	}
	if err := writeTrials(f, summary, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("trials sheet: %w", err)
	}
	if err := writeAssessment(f, summary, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("assessment sheet: %w", err)
	}
	return f, nil
}

// WriteWorkbook writes the XLSX workbook for summary to w.
func WriteWorkbook(w io.Writer, summary session.Summary) error {
	f, err := NewWorkbook(summary)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeScores(f *excelize.File, summary session.Summary, style int) error {
	if err := writeHeader(f, SheetScores, scoreHeader, style); err != nil {
		return err
	}
	for i, s := range summary.Scores {
		name := s.TestID
		if t, ok := metrics.FindTest(metrics.Catalog, s.TestID); ok {
			name = t.Name
		}
		var manual interface{} = ""
		if s.ManualScore != nil {
			manual = *s.ManualScore
		}
		row := []interface{}{
			s.TestID, name, s.AutomaticScore, manual, s.FinalScore(), s.Pain,
			s.OverrideReason, len(s.Audit), s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writeRow(f, SheetScores, i+2, row); err != nil {
			return err
		}
	}
	total := []interface{}{"composite", "", "", "", summary.Composite}
	return writeRow(f, SheetScores, len(summary.Scores)+2, total)
}

func writeTrials(f *excelize.File, summary session.Summary, style int) error {
	if err := writeHeader(f, SheetTrials, trialHeader(), style); err != nil {
		return err
	}
	for i, t := range summary.Trials {
		m := t.Metrics
		row := []interface{}{
			t.ID, t.Phase.Start, t.Phase.Impact, t.Phase.End,
			t.Phase.Duration.Milliseconds(), t.Phase.MaxVelocity,
			m.LeftValgus, m.RightValgus, m.ValgusAsymmetry,
			m.TrunkLeanSagittal, m.TrunkLeanFrontal,
			m.LeftArmAbduction, m.RightArmAbduction, m.ArmPositionValid,
			m.LandingSymmetry, m.InstabilityIndex,
			t.RiskScore, string(t.Risk), strings.Join(t.RiskFactors, ", "),
			t.Confidence,
		}
		if err := writeRow(f, SheetTrials, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeAssessment(f *excelize.File, summary session.Summary, style int) error {
	a := summary.Assessment
	rows := [][]interface{}{
		{"Session", summary.SessionID},
		{"Trials", a.Trials},
		{"High", a.High},
		{"Moderate", a.Moderate},
		{"Low", a.Low},
		{"Overall", string(a.Overall)},
		{"Composite score", summary.Composite},
	}
	for i, r := range rows {
		if err := writeRow(f, SheetAssessment, i+1, r); err != nil {
			return err
		}
	}
	return f.SetCellStyle(SheetAssessment, "A1", fmt.Sprintf("A%d", len(rows)), style)
}
