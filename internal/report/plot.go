package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/movement.screen/internal/landing"
)

var (
	velocityColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	enterColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	exitColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	impactColor   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// VelocityPlot draws the vertical velocity of samples against time in
// seconds from the first sample, the detector thresholds as dashed lines
// and a marker at the impact frame of every trial still in the buffer.
func VelocityPlot(samples []landing.Sample, trials []landing.Trial, det landing.DetectorConfig) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("velocity plot: no samples")
	}
	t0 := samples[0].Timestamp
	seconds := func(ts int64) float64 { return float64(ts-t0) / 1e9 }

	p := plot.New()
	p.Title.Text = "Drop jump - vertical velocity"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Velocity (units/s)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(samples))
	bySeq := make(map[int]landing.Sample, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: seconds(s.Timestamp), Y: s.Velocity}
		bySeq[s.Seq] = s
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = velocityColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("velocity", line)

	xMax := seconds(samples[len(samples)-1].Timestamp)
	for _, th := range []struct {
		name  string
		value float64
		c     color.Color
	}{
		{"enter", det.EnterVelocity, enterColor},
		{"exit", det.ExitVelocity, exitColor},
	} {
		tl, err := plotter.NewLine(plotter.XYs{{X: 0, Y: th.value}, {X: xMax, Y: th.value}})
		if err != nil {
			return nil, err
		}
		tl.Color = th.c
		tl.Width = vg.Points(0.5)
		tl.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(tl)
		p.Legend.Add(th.name, tl)
	}

	var impacts plotter.XYs
	for _, tr := range trials {
		if s, ok := bySeq[tr.Phase.Impact]; ok {
			impacts = append(impacts, plotter.XY{X: seconds(s.Timestamp), Y: s.Velocity})
		}
	}
	if len(impacts) > 0 {
		sc, err := plotter.NewScatter(impacts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = impactColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("impact", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteVelocityPNG renders VelocityPlot as a PNG to w.
func WriteVelocityPNG(w io.Writer, samples []landing.Sample, trials []landing.Trial, det landing.DetectorConfig) error {
	p, err := VelocityPlot(samples, trials, det)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("velocity plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
