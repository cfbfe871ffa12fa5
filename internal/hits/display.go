package hits

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"

	"github.com/lpchscp/rhadron/internal/model"
)

// Low-energy R-hadron histogram binning.
const (
	lowEnergyBins = 200
	lowEnergyMax  = 1.0
)

// Point is a 2D coordinate with an associated weight, usually the deposited energy.
type Point struct {
	X float64
	Y float64
	W float64
}

// Arrow is an R-hadron transverse momentum drawn from the origin.
type Arrow struct {
	Label string
	Px    float64
	Py    float64
	ET    float64
}

// Display holds the xy view of a single event.
type Display struct {
	Event  int
	Hits   []Point
	Arrows []Arrow
}

// EventDisplay collects the xy hit locations of an event and both R-hadron transverse momenta.
// The transverse energy of each R-hadron is sqrt(mass^2 + px^2 + py^2).
func EventDisplay(t *Table, event int, mass float64) (Display, error) {
	if err := t.Require(ColX, ColY, ColRhad1Px, ColRhad1Py, ColRhad2Px, ColRhad2Py); err != nil {
		return Display{}, err
	}
	rows := Event(t, event).rows
	if len(rows) == 0 {
		return Display{}, fmt.Errorf("event %d has no hits", event)
	}
	return newDisplay(event, rows, mass), nil
}

// EventDisplays builds the display of every event with hits, in event order.
func EventDisplays(t *Table, mass float64) ([]Display, error) {
	if err := t.Require(ColX, ColY, ColRhad1Px, ColRhad1Py, ColRhad2Px, ColRhad2Py); err != nil {
		return nil, err
	}
	events := groupByEvent(t)
	out := make([]Display, len(events))
	for i, rows := range events {
		out[i] = newDisplay(rows[0].Event, rows, mass)
	}
	return out, nil
}

func newDisplay(event int, rows []model.HitRecord, mass float64) Display {
	d := Display{Event: event, Hits: make([]Point, 0, len(rows))}
	for _, r := range rows {
		d.Hits = append(d.Hits, Point{X: r.X, Y: r.Y, W: r.Energy})
	}
	first := rows[0]
	d.Arrows = []Arrow{
		newArrow("Rhadron 1", first.Rhad1.Px, first.Rhad1.Py, mass),
		newArrow("Rhadron 2", first.Rhad2.Px, first.Rhad2.Py, mass),
	}
	return d
}

func newArrow(label string, px, py, mass float64) Arrow {
	return Arrow{Label: label, Px: px, Py: py, ET: math.Sqrt(mass*mass + px*px + py*py)}
}

// RZPoints returns the (z, r) location of every hit with energy above energyCut.
func RZPoints(t *Table, energyCut float64) ([]Point, error) {
	if err := t.Require(ColZ, ColR); err != nil {
		return nil, err
	}
	above := EnergyAbove(t, energyCut)
	out := make([]Point, 0, above.Len())
	for _, r := range above.rows {
		out = append(out, Point{X: r.Z, Y: r.R, W: r.Energy})
	}
	return out, nil
}

// EnergyPoints turns value counts into (energy, frequency) points.
func EnergyPoints(counts []ValueCount) []Point {
	out := make([]Point, len(counts))
	for i, vc := range counts {
		out[i] = Point{X: vc.Value, Y: float64(vc.Count)}
	}
	return out
}

// LowEnergyRHadronHistogram fills a 200-bin histogram over [0, 1] GeV with R-hadron hits
// at or below 1 GeV.
func LowEnergyRHadronHistogram(t *Table) *hbook.H1D {
	// Upper edge nudged so that hits of exactly 1 GeV land in the last bin, not the overflow.
	h := hbook.NewH1D(lowEnergyBins, 0, math.Nextafter(lowEnergyMax, math.Inf(1)))
	for _, r := range RHadrons(EnergyAtMost(t, lowEnergyMax)).rows {
		h.Fill(r.Energy, 1)
	}
	return h
}
