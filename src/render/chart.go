// Package render draws chart bundles as PNG line charts.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"csv-telemetry-plotter/src/chartdata"

	log "github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 480
)

var palette = map[string]drawing.Color{
	"blue":   chart.ColorBlue,
	"red":    chart.ColorRed,
	"orange": drawing.ColorFromHex("ffa500"),
}

func colorOf(name string) drawing.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return chart.ColorAlternateGray
}

// pointStyle renders points only, without a connecting line.
func pointStyle(col drawing.Color, radius float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    radius,
		DotColor:    col,
	}
}

func lineStyle(ds chartdata.Dataset) chart.Style {
	st := chart.Style{
		StrokeColor: colorOf(ds.Color),
		StrokeWidth: 2,
	}
	if ds.Dashed {
		st.StrokeDashArray = []float64{5, 5}
	}
	return st
}

// PNG renders b into w. Bundles with nothing to draw, or that go-chart refuses,
// come out as a blank image of the requested size.
func PNG(w io.Writer, b chartdata.Bundle, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	if b.Empty() {
		return blank(w, width, height)
	}
	series, xr, yr := buildSeries(b)
	if len(series) == 0 {
		return blank(w, width, height)
	}

	ch := chart.Chart{
		Title:      b.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: b.XLabel, Range: xr},
		YAxis:      chart.YAxis{Name: b.YLabel, Range: yr},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		log.WithError(err).WithField("chart", b.Title).Warn("chart render failed, writing blank image")
		return blank(w, width, height)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

// buildSeries converts datasets to go-chart series, dropping gaps. Highlight
// datasets (those with a point radius) are drawn as dots only.
func buildSeries(b chartdata.Bundle) ([]chart.Series, *chart.ContinuousRange, *chart.ContinuousRange) {
	var series []chart.Series
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)

	for _, ds := range b.Datasets {
		var xs, ys []float64
		for i, v := range ds.Data {
			if v == nil || i >= len(b.Labels) {
				continue
			}
			x := b.Labels[i]
			xs = append(xs, x)
			ys = append(ys, *v)
			xMin, xMax = math.Min(xMin, x), math.Max(xMax, x)
			yMin, yMax = math.Min(yMin, *v), math.Max(yMax, *v)
		}
		if len(xs) == 0 {
			continue
		}
		st := lineStyle(ds)
		if ds.PointRadius > 0 {
			st = pointStyle(colorOf(ds.Color), ds.PointRadius)
		}
		series = append(series, chart.ContinuousSeries{Name: ds.Label, XValues: xs, YValues: ys, Style: st})
	}
	if len(series) == 0 {
		return nil, nil, nil
	}
	return series, padRange(xMin, xMax), padRange(yMin, yMax)
}

// padRange widens a degenerate range so single points still render.
func padRange(min, max float64) *chart.ContinuousRange {
	if min == max {
		pad := math.Max(math.Abs(min)*0.1, 1)
		return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
	}
	return &chart.ContinuousRange{Min: min, Max: max}
}

func blank(w io.Writer, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode blank chart: %w", err)
	}
	return nil
}
