package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// XY is a point on a scatter plot.
type XY struct {
	X float64
	Y float64
}

// ScatterSeries is a named set of points.
type ScatterSeries struct {
	Name   string
	Points []XY
}

// Axis controls how scatter coordinates are mapped onto the canvas.
type Axis struct {
	Log bool
	// Min and Max fix the axis range when Max > Min.
	Min float64
	Max float64
}

type axisRange struct {
	min float64
	max float64
	log bool
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " │ "
	scaleNote           = "Scaled per series; see min/max below."
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// PlotSeries renders a multi-line text plot for the provided series, each scaled to its own range.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plotSeries(w, title, series, width, height)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	width, height = plotSize(width, height)

	c := newCanvas(width, height)
	ranges := make([]axisRange, len(series))
	for si, s := range series {
		values := resampleSeries(s.Values, width)
		minVal, maxVal := minMax(values)
		ranges[si] = padRange(axisRange{min: minVal, max: maxVal})
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := x*2, c.dotRow(ranges[si].fraction(v))
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					if style.shouldPlot(dx) {
						c.set(dx, dy, si)
					}
				})
			} else if style.shouldPlot(px) {
				c.set(px, py, si)
			}
			prevX, prevY = px, py
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	b.WriteString(scaleNote + "\n")
	for i, s := range series {
		fmt.Fprintf(&b, "%s: min=%.2f max=%.2f\n", s.Name, ranges[i].min, ranges[i].max)
	}
	useColor := shouldUseColor(w)
	c.render(&b, percentLabels(height), useColor)
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = fmt.Sprintf("%s (%s)", s.Name, lineStyles[i%len(lineStyles)].name)
	}
	b.WriteString(renderLegend(names, useColor) + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotScatter renders points as braille dots. Points outside a log axis domain are dropped.
func PlotScatter(w io.Writer, title string, series []ScatterSeries, xAxis, yAxis Axis, width, height int) error {
	width, height = plotSize(width, height)
	xr, xok := scatterRange(series, xAxis, func(p XY) float64 { return p.X })
	yr, yok := scatterRange(series, yAxis, func(p XY) float64 { return p.Y })
	if !xok || !yok {
		return nil
	}

	c := newCanvas(width, height)
	for si, s := range series {
		for _, p := range s.Points {
			if !xr.contains(p.X) || !yr.contains(p.Y) {
				continue
			}
			px := int(math.Round(xr.fraction(p.X) * float64(width*2-1)))
			c.set(px, c.dotRow(yr.fraction(p.Y)), si)
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	useColor := shouldUseColor(w)
	c.render(&b, valueLabels(yr, height), useColor)
	b.WriteString(xAxisLine(xr, width, valueLabelWidth(yr)) + "\n")
	if len(series) > 1 || (len(series) == 1 && series[0].Name != "") {
		names := make([]string, len(series))
		for i, s := range series {
			names[i] = s.Name
		}
		b.WriteString(renderLegend(names, useColor) + "\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func plotSize(width, height int) (int, int) {
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = autoPlotWidth()
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	return width, height
}

func scatterRange(series []ScatterSeries, axis Axis, get func(XY) float64) (axisRange, bool) {
	r := axisRange{log: axis.Log}
	if axis.Max > axis.Min {
		r.min, r.max = axis.Min, axis.Max
		return r, !(axis.Log && axis.Min <= 0)
	}
	found := false
	for _, s := range series {
		for _, p := range s.Points {
			v := get(p)
			if axis.Log && v <= 0 {
				continue
			}
			if !found {
				r.min, r.max = v, v
				found = true
				continue
			}
			r.min = math.Min(r.min, v)
			r.max = math.Max(r.max, v)
		}
	}
	if !found {
		return r, false
	}
	return padRange(r), true
}

func padRange(r axisRange) axisRange {
	if math.Abs(r.max-r.min) >= 1e-9 {
		return r
	}
	if r.log {
		r.min /= 10
		r.max *= 10
		return r
	}
	r.min--
	r.max++
	return r
}

func (r axisRange) contains(v float64) bool {
	if r.log && v <= 0 {
		return false
	}
	return v >= r.min && v <= r.max
}

// fraction maps v onto [0, 1] within the range.
func (r axisRange) fraction(v float64) float64 {
	if r.log {
		return (math.Log10(v) - math.Log10(r.min)) / (math.Log10(r.max) - math.Log10(r.min))
	}
	return (v - r.min) / (r.max - r.min)
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	plotWidth := totalWidth - axisWidth
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func percentLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

func valueLabels(r axisRange, height int) []string {
	labels := make([]string, height)
	labels[0] = formatTick(r.max)
	if height > 1 {
		labels[height-1] = formatTick(r.min)
	}
	if height > 2 {
		mid := (r.min + r.max) / 2
		if r.log {
			mid = math.Sqrt(r.min * r.max)
		}
		labels[height/2] = formatTick(mid)
	}
	return labels
}

func valueLabelWidth(r axisRange) int {
	width := 0
	for _, v := range []float64{r.min, r.max, (r.min + r.max) / 2, math.Sqrt(math.Abs(r.min * r.max))} {
		if n := utf8.RuneCountInString(formatTick(v)); n > width {
			width = n
		}
	}
	return width
}

func xAxisLine(r axisRange, width, labelWidth int) string {
	left := formatTick(r.min)
	right := formatTick(r.max)
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	indent := strings.Repeat(" ", labelWidth+utf8.RuneCountInString(axisSeparator))
	return indent + left + strings.Repeat(" ", gap) + right
}

func formatTick(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) == width {
		return append([]float64(nil), values...)
	}
	out := make([]float64, width)
	if len(values) > width {
		// Average the buckets that collapse into one column.
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if len(values) == 1 || width == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(width-1)
		idx := int(pos)
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func renderLegend(names []string, useColor bool) string {
	parts := make([]string, 0, len(names))
	marker := brailleFromMask(0x01)
	for i, name := range names {
		label := fmt.Sprintf("%c %s", marker, name)
		if useColor {
			label = colorPalette[i%len(colorPalette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
