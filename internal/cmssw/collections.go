// Package cmssw describes how the spiked R-hadron analyzer is wired into a CMSSW job.
package cmssw

import (
	"strings"

	"github.com/lpchscp/rhadron/internal/model"
)

// GlobalTag is the conditions tag the analyzer runs with.
const GlobalTag = "106X_mcRun3_2021_realistic_v3"

// Group is a detector subsystem.
type Group string

// Subsystems, in the order the analyzer declares them.
const (
	GroupGenerator   Group = "Generator"
	GroupSimulation  Group = "Simulation"
	GroupTracker     Group = "Tracker"
	GroupCalorimeter Group = "Calorimeter"
	GroupMuon        Group = "Muon"
)

// InputTag identifies an event product as module:instance:process.
type InputTag struct {
	Module   string
	Instance string
	Process  string
}

// String renders the tag the way CMSSW prints it, dropping empty trailing parts.
func (t InputTag) String() string {
	parts := []string{t.Module, t.Instance, t.Process}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ":")
}

// Collection is one analyzer parameter and the detector label its hits carry.
type Collection struct {
	Param    string
	Tag      InputTag
	Group    Group
	Detector string
}

func simHits(instance string) InputTag {
	return InputTag{Module: "g4SimHits", Instance: instance}
}

var collections = []Collection{
	{Param: "gen_info", Tag: InputTag{Module: "genParticles", Process: "SIM"}, Group: GroupGenerator},
	{Param: "G4TrkSrc", Tag: InputTag{Module: "g4SimHits"}, Group: GroupSimulation},
	{Param: "G4VtxSrc", Tag: InputTag{Module: "g4SimHits"}, Group: GroupSimulation},

	{Param: "TrackerHitsPixelBarrelLowTof", Tag: simHits("TrackerHitsPixelBarrelLowTof"), Group: GroupTracker, Detector: model.DetectorPixelBarrel},
	{Param: "TrackerHitsPixelBarrelHighTof", Tag: simHits("TrackerHitsPixelBarrelHighTof"), Group: GroupTracker, Detector: model.DetectorPixelBarrel},
	{Param: "TrackerHitsPixelEndcapLowTof", Tag: simHits("TrackerHitsPixelEndcapLowTof"), Group: GroupTracker, Detector: model.DetectorPixelEndcap},
	{Param: "TrackerHitsPixelEndcapHighTof", Tag: simHits("TrackerHitsPixelEndcapHighTof"), Group: GroupTracker, Detector: model.DetectorPixelEndcap},
	{Param: "TrackerHitsTIBLowTof", Tag: simHits("TrackerHitsTIBLowTof"), Group: GroupTracker, Detector: model.DetectorTIB},
	{Param: "TrackerHitsTIBHighTof", Tag: simHits("TrackerHitsTIBHighTof"), Group: GroupTracker, Detector: model.DetectorTIB},
	{Param: "TrackerHitsTOBLowTof", Tag: simHits("TrackerHitsTOBLowTof"), Group: GroupTracker, Detector: model.DetectorTOB},
	{Param: "TrackerHitsTOBHighTof", Tag: simHits("TrackerHitsTOBHighTof"), Group: GroupTracker, Detector: model.DetectorTOB},
	{Param: "TrackerHitsTECLowTof", Tag: simHits("TrackerHitsTECLowTof"), Group: GroupTracker, Detector: model.DetectorTEC},
	{Param: "TrackerHitsTECHighTof", Tag: simHits("TrackerHitsTECHighTof"), Group: GroupTracker, Detector: model.DetectorTEC},
	{Param: "TrackerHitsTIDLowTof", Tag: simHits("TrackerHitsTIDLowTof"), Group: GroupTracker, Detector: model.DetectorTID},
	{Param: "TrackerHitsTIDHighTof", Tag: simHits("TrackerHitsTIDHighTof"), Group: GroupTracker, Detector: model.DetectorTID},

	{Param: "EcalHitsEB", Tag: simHits("EcalHitsEB"), Group: GroupCalorimeter, Detector: model.DetectorEB},
	{Param: "EcalHitsEE", Tag: simHits("EcalHitsEE"), Group: GroupCalorimeter, Detector: model.DetectorEE},
	{Param: "EcalHitsES", Tag: simHits("EcalHitsES"), Group: GroupCalorimeter, Detector: model.DetectorES},
	{Param: "HcalHits", Tag: simHits("HcalHits"), Group: GroupCalorimeter, Detector: model.DetectorHCAL},

	{Param: "MuonCSCHits", Tag: simHits("MuonCSCHits"), Group: GroupMuon, Detector: model.DetectorMuonCSC},
	{Param: "MuonDTHits", Tag: simHits("MuonDTHits"), Group: GroupMuon, Detector: model.DetectorMuonDT},
	{Param: "MuonRPCHits", Tag: simHits("MuonRPCHits"), Group: GroupMuon, Detector: model.DetectorMuonRPC},
	{Param: "MuonGEMHits", Tag: simHits("MuonGEMHits"), Group: GroupMuon, Detector: model.DetectorMuonGEM},
}

// Collections returns the analyzer wiring in declaration order.
func Collections() []Collection {
	return append([]Collection(nil), collections...)
}

// ForDetector returns the hit collections that produce rows with the given detector label.
func ForDetector(label string) []Collection {
	var out []Collection
	for _, c := range collections {
		if c.Detector == label {
			out = append(out, c)
		}
	}
	return out
}

// Detectors returns every detector label produced by the analyzer, in declaration order.
func Detectors() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range collections {
		if c.Detector == "" || seen[c.Detector] {
			continue
		}
		seen[c.Detector] = true
		out = append(out, c.Detector)
	}
	return out
}
