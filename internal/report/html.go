package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/uncertainty"
)

// WriteHTML renders bar-chart histograms of the estimates and pulls as a
// standalone HTML page.
func WriteHTML(w io.Writer, results []abcd.Result) error {
	page := components.NewPage()
	page.PageTitle = "ABCD closure test"
	page.AddCharts(
		histogramChart("Background estimate BC/D", fmt.Sprintf("trials=%d", len(results)), CalcAValues(results)),
		histogramChart("Pull (BC/D - A) / error", "expected: unit normal", PullValues(results)),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func histogramChart(title, subtitle string, values []float64) *charts.Bar {
	bins := Histogram(values, DefaultBins)
	x := make([]string, len(bins))
	y := make([]opts.BarData, len(bins))
	for i, b := range bins {
		x[i] = uncertainty.FormatFloat((b.Lo + b.Hi) / 2)
		y[i] = opts.BarData{Value: b.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("trials", y)
	return bar
}
