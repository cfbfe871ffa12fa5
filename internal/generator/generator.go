// Package generator builds synthetic hit tables shaped like the R-hadron analyzer output.
package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/lpchscp/rhadron/internal/model"
)

var detectorWeights = []struct {
	label  string
	weight float64
}{
	{model.DetectorEB, 0.40},
	{model.DetectorEE, 0.15},
	{model.DetectorES, 0.05},
	{model.DetectorHCAL, 0.15},
	{model.DetectorTIB, 0.05},
	{model.DetectorTOB, 0.05},
	{model.DetectorMuonDT, 0.05},
	{model.DetectorMuonCSC, 0.05},
	{model.DetectorMuonRPC, 0.05},
}

var rhadronIDs = []int{1000021, 1000993, 1009213, 1009313, 1009113, 1009333, 1092214, 1093114, 1093324, 1093334}

var smIDs = []int{11, -11, 13, -13, 22, 211, -211, 2212, 2112}

// Generator produces randomized hit records.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed for reproducible tables.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate produces hitsPerEvent hits for each of events events. The gluino mass sets the
// energy of the spike deposits left by R-hadrons.
func (g *Generator) Generate(events, hitsPerEvent int, mass float64) []model.HitRecord {
	out := make([]model.HitRecord, 0, events*hitsPerEvent)
	for ev := 1; ev <= events; ev++ {
		rhad1 := g.momentum(mass)
		rhad2 := model.Momentum{Px: -rhad1.Px, Py: -rhad1.Py, Pz: g.rnd.NormFloat64() * mass / 2}
		for i := 0; i < hitsPerEvent; i++ {
			out = append(out, g.hit(ev, mass, rhad1, rhad2))
		}
	}
	return out
}

func (g *Generator) momentum(mass float64) model.Momentum {
	pt := math.Abs(g.rnd.NormFloat64()) * mass / 3
	phi := g.rnd.Float64() * 2 * math.Pi
	return model.Momentum{Px: pt * math.Cos(phi), Py: pt * math.Sin(phi), Pz: g.rnd.NormFloat64() * mass / 2}
}

func (g *Generator) hit(event int, mass float64, rhad1, rhad2 model.Momentum) model.HitRecord {
	r := model.HitRecord{Event: event, Detector: g.detector()}
	rhadron := g.rnd.Float64() < 0.3
	if rhadron {
		r.ParticleType = applySign(g.rnd, rhadronIDs[g.rnd.Intn(len(rhadronIDs))])
		r.Parent = r.ParticleType
		r.Daughters = "[]"
		// Most R-hadron deposits are either a full-mass spike or a tiny ionisation hit.
		if g.rnd.Float64() < 0.5 {
			r.Energy = mass + math.Round(g.rnd.Float64()*200)/100
		} else {
			r.Energy = math.Round(g.rnd.Float64()*1e5) / 1e5
		}
	} else {
		r.ParticleType = smIDs[g.rnd.Intn(len(smIDs))]
		r.Parent = smIDs[g.rnd.Intn(len(smIDs))]
		r.Daughters = "[11, -11]"
		r.Energy = math.Round(math.Exp(g.rnd.NormFloat64()*2-4)*1e6) / 1e6
	}

	phi := g.rnd.Float64() * 2 * math.Pi
	if rhadron {
		src := rhad1
		if g.rnd.Intn(2) == 1 {
			src = rhad2
		}
		phi = math.Atan2(src.Py, src.Px) + g.rnd.NormFloat64()*0.05
	}
	r.R = 129 + g.rnd.Float64()*50
	r.X = r.R * math.Cos(phi)
	r.Y = r.R * math.Sin(phi)
	r.Z = g.rnd.NormFloat64() * 150
	r.Rhad1 = rhad1
	r.Rhad2 = rhad2
	return r
}

func (g *Generator) detector() string {
	x := g.rnd.Float64()
	acc := 0.0
	for _, d := range detectorWeights {
		acc += d.weight
		if x <= acc {
			return d.label
		}
	}
	return detectorWeights[len(detectorWeights)-1].label
}

func applySign(rnd *rand.Rand, id int) int {
	if rnd.Intn(2) == 0 {
		return -id
	}
	return id
}
