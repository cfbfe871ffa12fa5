package hits

import (
	"github.com/lpchscp/rhadron/internal/model"
)

// PDG id bounds of the R-hadron states: 999999 < |id| < 10000000.
const (
	rhadronPDGMin = 999999
	rhadronPDGMax = 10000000
)

// IsRHadron reports whether a particle-type code belongs to an R-hadron state.
func IsRHadron(pdg int) bool {
	a := absInt(pdg)
	return a > rhadronPDGMin && a < rhadronPDGMax
}

// EnergyAbove keeps hits with energy strictly above cut.
func EnergyAbove(t *Table, cut float64) *Table {
	return t.Where(func(r model.HitRecord) bool { return r.Energy > cut })
}

// EnergyAtMost keeps hits with energy at or below cut.
func EnergyAtMost(t *Table, cut float64) *Table {
	return t.Where(func(r model.HitRecord) bool { return r.Energy <= cut })
}

// EnergyBetween keeps hits with lo <= energy <= hi.
func EnergyBetween(t *Table, lo, hi float64) *Table {
	return t.Where(func(r model.HitRecord) bool { return r.Energy >= lo && r.Energy <= hi })
}

// OnlyDetectors keeps hits whose detector label is one of labels.
func OnlyDetectors(t *Table, labels ...string) *Table {
	set := labelSet(labels)
	return t.Where(func(r model.HitRecord) bool {
		_, ok := set[r.Detector]
		return ok
	})
}

// ExcludeDetectors drops hits whose detector label is one of labels.
func ExcludeDetectors(t *Table, labels ...string) *Table {
	set := labelSet(labels)
	return t.Where(func(r model.HitRecord) bool {
		_, ok := set[r.Detector]
		return !ok
	})
}

// RemoveMuonHits drops hits from the RPC, DT and CSC muon chambers.
func RemoveMuonHits(t *Table) *Table {
	return ExcludeDetectors(t, model.MuonDetectors...)
}

// RemoveECALHits drops hits from the EB, EE and ES calorimeter regions.
func RemoveECALHits(t *Table) *Table {
	return ExcludeDetectors(t, model.ECALDetectors...)
}

// RHadrons keeps hits left by R-hadron states.
func RHadrons(t *Table) *Table {
	return t.Where(func(r model.HitRecord) bool { return IsRHadron(r.ParticleType) })
}

// NonRHadrons keeps hits left by Standard Model particles.
func NonRHadrons(t *Table) *Table {
	return t.Where(func(r model.HitRecord) bool {
		a := absInt(r.ParticleType)
		return a < rhadronPDGMin || a > rhadronPDGMax
	})
}

// Event keeps the hits of a single event.
func Event(t *Table, n int) *Table {
	return t.Where(func(r model.HitRecord) bool { return r.Event == n })
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
