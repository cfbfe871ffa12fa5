package hits

import (
	"math"
	"sort"

	"github.com/lpchscp/rhadron/internal/model"
)

// Defaults used by the R-hadron association count.
const (
	DefaultAssociationEnergyCut = 1000.0
	DefaultMaxDeltaPhi          = 0.1
)

// Association is the result of HitsAssociatedWithRHadron.
type Association struct {
	Hits        int
	FromRHadron int
}

// HitsAssociatedWithRHadron counts hits above energyCut and, among them, those whose azimuth
// lies within maxDeltaPhi of either R-hadron's transverse momentum.
func HitsAssociatedWithRHadron(t *Table, energyCut, maxDeltaPhi float64) (Association, error) {
	if err := t.Require(ColX, ColY, ColRhad1Px, ColRhad1Py, ColRhad2Px, ColRhad2Py); err != nil {
		return Association{}, err
	}
	var out Association
	for _, event := range groupByEvent(t) {
		first := event[0]
		phi1 := math.Atan2(first.Rhad1.Py, first.Rhad1.Px)
		phi2 := math.Atan2(first.Rhad2.Py, first.Rhad2.Px)
		for _, r := range event {
			if r.Energy <= energyCut {
				continue
			}
			out.Hits++
			phi := math.Atan2(r.Y, r.X)
			if DeltaPhi(phi, phi1) < maxDeltaPhi || DeltaPhi(phi, phi2) < maxDeltaPhi {
				out.FromRHadron++
			}
		}
	}
	return out, nil
}

// DeltaPhi returns the absolute azimuthal separation folded into [0, pi].
func DeltaPhi(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// groupByEvent returns the rows of each event >= 1 in event order, skipping empty events.
func groupByEvent(t *Table) [][]model.HitRecord {
	byEvent := map[int][]model.HitRecord{}
	for _, r := range t.rows {
		if r.Event < 1 {
			continue
		}
		byEvent[r.Event] = append(byEvent[r.Event], r)
	}
	events := make([]int, 0, len(byEvent))
	for n := range byEvent {
		events = append(events, n)
	}
	sort.Ints(events)
	out := make([][]model.HitRecord, len(events))
	for i, n := range events {
		out[i] = byEvent[n]
	}
	return out
}
