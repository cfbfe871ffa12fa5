package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"go-hep.org/x/hep/hbook"
)

// RenderHistogram draws the bins of h as braille bars. With logY, empty bins stay blank and
// the vertical axis is logarithmic.
func RenderHistogram(w io.Writer, title string, h *hbook.H1D, width, height int, logY bool) error {
	if h == nil || len(h.Binning.Bins) == 0 {
		return nil
	}
	width, height = plotSize(width, height)
	bins := h.Binning.Bins
	values := make([]float64, len(bins))
	for i, bin := range bins {
		values[i] = bin.SumW()
	}
	columns := rebinColumns(values, width*2)

	yr := axisRange{min: 0, max: 0, log: logY}
	for _, v := range columns {
		yr.max = math.Max(yr.max, v)
	}
	if logY {
		yr.min = math.Inf(1)
		for _, v := range columns {
			if v > 0 {
				yr.min = math.Min(yr.min, v)
			}
		}
		if math.IsInf(yr.min, 1) {
			yr.min, yr.max = 1, 10
		}
		// Bars need a floor below the smallest non-empty bin to be visible.
		yr.min /= 2
	}
	if yr.max <= yr.min {
		yr.max = yr.min + 1
	}

	c := newCanvas(width, height)
	for x, v := range columns {
		if v <= 0 {
			continue
		}
		c.fillColumn(x, c.dotRow(yr.fraction(v)), 0)
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	fmt.Fprintf(&b, "Entries: %d  Mean: %.4g  Std: %.4g  Underflow: %.0f  Overflow: %.0f\n",
		h.Entries(), h.XMean(), h.XStdDev(), h.Binning.Outflows[0].SumW(), h.Binning.Outflows[1].SumW())
	c.render(&b, valueLabels(yr, height), shouldUseColor(w))
	b.WriteString(xAxisLine(axisRange{min: h.XMin(), max: h.XMax()}, width, valueLabelWidth(yr)) + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// rebinColumns maps bins onto dot columns: adjacent bins are summed when there are more bins
// than columns, and a bin is repeated across columns when there are fewer.
func rebinColumns(values []float64, columns int) []float64 {
	if len(values) == 0 || columns <= 0 {
		return nil
	}
	out := make([]float64, columns)
	if len(values) > columns {
		for i, v := range values {
			out[i*columns/len(values)] += v
		}
		return out
	}
	for x := range out {
		out[x] = values[x*len(values)/columns]
	}
	return out
}
