// Package report renders benchmark results as a chart, a text summary and JSON.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"ocrbench/internal/benchmark"
	"ocrbench/internal/logger"
)

// ErrNothingToPlot is returned when no engine has a successful result.
var ErrNothingToPlot = errors.New("no successful results to plot")

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 15 * vg.Inch
	barWidth    = vg.Length(40) // points
)

// RenderChart writes a PNG with one bar chart per metric (average CER, WER
// and time), stacked vertically, one bar per engine in table order. Engines
// without any successful result are omitted.
func RenderChart(table *benchmark.ResultsTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := WriteChart(f, table); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}

	log := logger.WithComponent("report")
	log.Info().Str("path", path).Msg("Chart written")
	return nil
}

// WriteChart renders the chart as PNG into w.
func WriteChart(w io.Writer, table *benchmark.ResultsTable) error {
	stats := table.Aggregate()

	var engines []string
	for _, name := range table.Engines {
		if _, ok := stats[name]; ok {
			engines = append(engines, name)
		}
	}
	if len(engines) == 0 {
		return ErrNothingToPlot
	}

	plots := make([][]*plot.Plot, len(benchmark.Metrics))
	for i, metric := range benchmark.Metrics {
		values := make(plotter.Values, len(engines))
		for j, name := range engines {
			values[j] = stats[name][metric]
		}

		p, err := metricPlot(i, metric, engines, values)
		if err != nil {
			return err
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(chartWidth, chartHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      5 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func metricPlot(idx int, metric string, engines []string, values plotter.Values) (*plot.Plot, error) {
	label := strings.ToUpper(metric)

	p := plot.New()
	p.Title.Text = "Average " + label
	p.X.Label.Text = "OCR Tool"
	p.Y.Label.Text = label
	if metric == benchmark.MetricTime {
		p.Y.Label.Text = "TIME (s)"
	}
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, fmt.Errorf("bar chart for %s: %w", metric, err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(idx)

	p.Add(bars)
	p.NominalX(engines...)
	return p, nil
}
