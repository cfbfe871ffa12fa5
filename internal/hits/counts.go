package hits

import (
	"sort"

	"github.com/lpchscp/rhadron/internal/model"
)

// ValueCount pairs a distinct value with its number of occurrences.
type ValueCount struct {
	Value float64
	Count int
}

// HitLocations returns the number of hits above energyCut in the EB, EE and ES regions.
func HitLocations(t *Table, energyCut float64) (eb, ee, es int) {
	for _, r := range t.rows {
		if r.Energy <= energyCut {
			continue
		}
		switch r.Detector {
		case model.DetectorEB:
			eb++
		case model.DetectorEE:
			ee++
		case model.DetectorES:
			es++
		}
	}
	return eb, ee, es
}

// HitsPerEvent returns, for events 1..MaxEvent, the number of hits above energyCut.
func HitsPerEvent(t *Table, energyCut float64) []int {
	counts := make([]int, t.MaxEvent())
	for _, r := range t.rows {
		if r.Event < 1 || r.Energy <= energyCut {
			continue
		}
		counts[r.Event-1]++
	}
	return counts
}

// DetectorCounts returns the number of rows per detector label.
func DetectorCounts(t *Table) map[string]int {
	counts := map[string]int{}
	for _, r := range t.rows {
		counts[r.Detector]++
	}
	return counts
}

// EnergyValueCounts returns how often each distinct energy occurs, most frequent first.
func EnergyValueCounts(t *Table) []ValueCount {
	counts := map[float64]int{}
	for _, r := range t.rows {
		counts[r.Energy]++
	}
	return sortedValueCounts(counts)
}

// ParticleCountsByEnergy counts EB R-hadron hits depositing exactly energy, keyed by |PDG id|.
func ParticleCountsByEnergy(t *Table, energy float64) []ValueCount {
	counts := map[float64]int{}
	for _, r := range t.rows {
		if r.Detector != model.DetectorEB || !IsRHadron(r.ParticleType) || r.Energy != energy {
			continue
		}
		counts[float64(absInt(r.ParticleType))]++
	}
	return sortedValueCounts(counts)
}

func sortedValueCounts(counts map[float64]int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}
