package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/movement.screen/internal/landing"
)

var riskColors = map[landing.Risk]string{
	landing.RiskLow:      "#2ca02c",
	landing.RiskModerate: "#ff7f0e",
	landing.RiskHigh:     "#d62728",
}

// WriteRiskChart renders an HTML page with one bar per trial for the risk
// score, coloured by tier, and the left and right valgus angles alongside.
func WriteRiskChart(w io.Writer, sessionID string, trials []landing.Trial, assessment landing.Assessment) error {
	labels := make([]string, len(trials))
	risk := make([]opts.BarData, len(trials))
	left := make([]opts.BarData, len(trials))
	right := make([]opts.BarData, len(trials))
	for i, tr := range trials {
		labels[i] = fmt.Sprintf("Trial %d", i+1)
		risk[i] = opts.BarData{
			Name:      string(tr.Risk),
			Value:     tr.RiskScore,
			ItemStyle: &opts.ItemStyle{Color: riskColors[tr.Risk]},
		}
		left[i] = opts.BarData{Value: round1(tr.Metrics.LeftValgus)}
		right[i] = opts.BarData{Value: round1(tr.Metrics.RightValgus)}
	}

	scoreBar := charts.NewBar()
	scoreBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Landing risk", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Landing risk score",
			Subtitle: fmt.Sprintf("session=%s trials=%d overall=%s", sessionID, assessment.Trials, assessment.Overall),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score", Min: 0}),
	)
	scoreBar.SetXAxis(labels).
		AddSeries("risk score", risk,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	valgusBar := charts.NewBar()
	valgusBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Knee valgus at impact"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Degrees"}),
	)
	valgusBar.SetXAxis(labels).
		AddSeries("left", left).
		AddSeries("right", right)

	page := components.NewPage()
	page.AddCharts(scoreBar, valgusBar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render risk chart: %w", err)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
