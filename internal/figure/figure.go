// Package figure saves analysis plots as image files.
package figure

import (
	"fmt"
	"image/color"
	"math"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/lpchscp/rhadron/internal/hits"
)

// Default figure size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Labels holds the title and axis labels of a figure.
type Labels struct {
	Title string
	X     string
	Y     string
	LogX  bool
	LogY  bool
}

var arrowColors = []color.Color{
	color.RGBA{R: 220, G: 50, B: 47, A: 255},
	color.RGBA{R: 38, G: 139, B: 210, A: 255},
}

// SaveHistogram writes h to path. The image format follows the file extension.
func SaveHistogram(path string, h *hbook.H1D, labels Labels) error {
	p := newPlot(labels)
	hh := hplot.NewH1D(h)
	hh.LogY = labels.LogY
	p.Add(hh)
	return save(p, path)
}

// SaveScatter writes the points to path. Points outside a log axis domain are dropped.
func SaveScatter(path string, points []hits.Point, labels Labels) error {
	p := newPlot(labels)
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if (labels.LogX && pt.X <= 0) || (labels.LogY && pt.Y <= 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(xys) == 0 {
		return fmt.Errorf("failed to plot %s: no points in range", path)
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)
	return save(p, path)
}

// SaveEventDisplay writes an x-y view of one event: hit markers sized by energy and one line per
// R-hadron direction, scaled to the outermost hit radius.
func SaveEventDisplay(path string, d hits.Display) error {
	p := newPlot(Labels{
		Title: fmt.Sprintf("Event %d: CaloHit locations & energies", d.Event),
		X:     "x [cm]",
		Y:     "y [cm]",
	})
	p.Add(plotter.NewGrid())

	radius := 1.0
	maxW := 0.0
	xys := make(plotter.XYs, len(d.Hits))
	for i, pt := range d.Hits {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		radius = math.Max(radius, math.Hypot(pt.X, pt.Y))
		maxW = math.Max(maxW, pt.W)
	}
	if len(xys) > 0 {
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("failed to build hit markers: %w", err)
		}
		weights := d.Hits
		s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			r := vg.Points(2)
			if maxW > 0 {
				r += vg.Points(6 * math.Sqrt(weights[i].W/maxW))
			}
			return draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: r, Color: color.Black}
		}
		p.Add(s)
		p.Legend.Add("hits", s)
	}

	for i, a := range d.Arrows {
		pt := math.Hypot(a.Px, a.Py)
		if pt == 0 {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: 0},
			{X: a.Px / pt * radius, Y: a.Py / pt * radius},
		})
		if err != nil {
			return fmt.Errorf("failed to build %s direction: %w", a.Label, err)
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = arrowColors[i%len(arrowColors)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s E_T=%.0f GeV", a.Label, a.ET), line)
	}
	p.Legend.Top = true
	return save(p, path)
}

func newPlot(labels Labels) *hplot.Plot {
	p := hplot.New()
	p.Title.Text = labels.Title
	p.X.Label.Text = labels.X
	p.Y.Label.Text = labels.Y
	if labels.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if labels.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return p
}

func save(p *hplot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("failed to save figure %s: %w", path, err)
	}
	return nil
}
