package stats

import (
	"github.com/lpchscp/rhadron/internal/hits"
)

// Report contains precomputed data for the hit browser.
type Report struct {
	Rows         int
	RHadronHits  int
	EnergyCut    float64
	EB           int
	EE           int
	ES           int
	Detectors    map[string]int
	HitsPerEvent []int
	TopEnergies  []hits.ValueCount
	Association  *hits.Association
}

// BuildReport derives the browser views from a hit table and an energy cut.
func BuildReport(t *hits.Table, energyCut float64) Report {
	above := hits.EnergyAbove(t, energyCut)
	r := Report{
		Rows:         above.Len(),
		RHadronHits:  hits.RHadrons(above).Len(),
		EnergyCut:    energyCut,
		Detectors:    hits.DetectorCounts(above),
		HitsPerEvent: hits.HitsPerEvent(t, energyCut),
		TopEnergies:  TopValueCounts(hits.EnergyValueCounts(above), 10),
	}
	r.EB, r.EE, r.ES = hits.HitLocations(t, energyCut)
	if assoc, err := hits.HitsAssociatedWithRHadron(t, energyCut, hits.DefaultMaxDeltaPhi); err == nil {
		r.Association = &assoc
	}
	return r
}
