package hits

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpchscp/rhadron/internal/generator"
	"github.com/lpchscp/rhadron/internal/model"
)

const sampleCSV = `Event,Detector Type,Calohit X [cm],Calohit Y [cm],Calohit Z [cm],Calohit R [cm],Calohit Energy [GeV],Particle Type,Rhad1_px [GeV],Rhad1_py [GeV],Rhad1_pz [GeV],Rhad2_px [GeV],Rhad2_py [GeV],Rhad2_pz [GeV]
1,EB,130,0,10,130,1800.98,1000021,500,0,10,-500,0,-10
1,EB,0,130,12,130,1500,-1009213,500,0,10,-500,0,-10
1,EE,-130,1,300,130,0.5,22,500,0,10,-500,0,-10
1,MuonDT,400,0,0,400,0.001,13,500,0,10,-500,0,-10
2,ES,0,-130,290,130,2.5,11,0,300,5,0,-300,-5
2,EB,1,-130,20,130,1200,1093114,0,300,5,0,-300,-5
2,MuonCSC,0,600,700,600,0.002,-13,0,300,5,0,-300,-5
`

func loadSample(t *testing.T) *Table {
	t.Helper()
	table, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return table
}

func generatedTable(seed int64) *Table {
	return NewTable(generator.NewSeeded(seed).Generate(40, 25, 1800))
}

func TestReadParsesColumns(t *testing.T) {
	table := loadSample(t)
	require.Equal(t, 7, table.Len())

	first := table.Row(0)
	assert.Equal(t, 1, first.Event)
	assert.Equal(t, model.DetectorEB, first.Detector)
	assert.InDelta(t, 1800.98, first.Energy, 1e-9)
	assert.Equal(t, 1000021, first.ParticleType)
	assert.InDelta(t, 500, first.Rhad1.Px, 1e-9)
	assert.True(t, table.Has(ColRhad2Pz))
	assert.False(t, table.Has(ColParent))
	assert.Equal(t, 2, table.MaxEvent())
}

func TestReadAcceptsAliasesAndFloatIntegers(t *testing.T) {
	csv := "Event,ECal Type,Calo Hit Energy [GeV],Particle Type,Parent,Daughters\n" +
		"3,EE,1800.97,1000021.0,-1000021,\"[22, 22]\"\n"
	table, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	row := table.Row(0)
	assert.Equal(t, model.DetectorEE, row.Detector)
	assert.Equal(t, 1000021, row.ParticleType)
	assert.Equal(t, -1000021, row.Parent)
	assert.Equal(t, "[22, 22]", row.Daughters)
}

func TestReadMissingRequiredColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Event,Detector Type,Particle Type\n1,EB,22\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "Calohit Energy [GeV]")
}

func TestReadReportsBadCell(t *testing.T) {
	_, err := Read(strings.NewReader("Event,Detector Type,Calohit Energy [GeV],Particle Type\n1,EB,abc,22\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteRoundTripKeepsColumns(t *testing.T) {
	table := loadSample(t)
	var buf bytes.Buffer
	require.NoError(t, RemoveMuonHits(table).Write(&buf))

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 5, again.Len())
	assert.Equal(t, table.Has(ColParent), again.Has(ColParent))
	assert.Equal(t, RemoveMuonHits(table).Rows(), again.Rows())
}

func TestDetectorFilters(t *testing.T) {
	table := loadSample(t)
	assert.Equal(t, 5, RemoveMuonHits(table).Len())
	assert.Equal(t, 2, RemoveECALHits(table).Len())
	assert.Equal(t, 3, OnlyDetectors(table, model.DetectorEB).Len())
	assert.Equal(t, 3, RHadrons(table).Len())
	assert.Equal(t, 4, NonRHadrons(table).Len())
	assert.Equal(t, 3, Event(table, 2).Len())
}

func TestFiltersDoNotMutateSource(t *testing.T) {
	table := loadSample(t)
	before := table.Rows()
	_ = EnergyAbove(table, 100)
	_ = RemoveECALHits(table)
	assert.Equal(t, before, table.Rows())
}

func TestEnergyFilterIdempotent(t *testing.T) {
	table := generatedTable(7)
	for _, cut := range []float64{0, 0.001, 1, 1800.5} {
		once := EnergyAbove(table, cut)
		twice := EnergyAbove(once, cut)
		assert.Equal(t, once.Rows(), twice.Rows(), "cut %v", cut)
	}
}

func TestEnergyFilterMonotone(t *testing.T) {
	table := generatedTable(11)
	prev := table.Len()
	for _, cut := range []float64{-1, 0, 1e-4, 1e-2, 1, 100, 1800, 1801, 1e6} {
		n := EnergyAbove(table, cut).Len()
		assert.LessOrEqual(t, n, table.Len())
		assert.LessOrEqual(t, n, prev, "cut %v", cut)
		prev = n
	}
}

func TestHitLocationsPartitionECAL(t *testing.T) {
	table := generatedTable(3)
	for _, cut := range []float64{0, 1e-3, 1, 1800} {
		eb, ee, es := HitLocations(table, cut)
		want := OnlyDetectors(EnergyAbove(table, cut), model.ECALDetectors...).Len()
		assert.Equal(t, want, eb+ee+es, "cut %v", cut)
	}
}

func TestHitLocationsSample(t *testing.T) {
	eb, ee, es := HitLocations(loadSample(t), 1)
	assert.Equal(t, 3, eb)
	assert.Equal(t, 0, ee)
	assert.Equal(t, 1, es)
}

func TestHitsPerEvent(t *testing.T) {
	assert.Equal(t, []int{4, 3}, HitsPerEvent(loadSample(t), 0))
	assert.Equal(t, []int{2, 1}, HitsPerEvent(loadSample(t), 1000))
}

func TestHitsAssociatedWithRHadron(t *testing.T) {
	assoc, err := HitsAssociatedWithRHadron(loadSample(t), DefaultAssociationEnergyCut, DefaultMaxDeltaPhi)
	require.NoError(t, err)
	// Event 1: (130,0) is along Rhad1, (0,130) is perpendicular. Event 2: (1,-130) is along Rhad2.
	assert.Equal(t, Association{Hits: 3, FromRHadron: 2}, assoc)
}

func TestHitsAssociatedRequiresMomentum(t *testing.T) {
	table, err := Read(strings.NewReader("Event,Detector Type,Calohit Energy [GeV],Particle Type\n1,EB,2000,22\n"))
	require.NoError(t, err)
	_, err = HitsAssociatedWithRHadron(table, 1000, 0.1)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestDeltaPhiWraps(t *testing.T) {
	assert.InDelta(t, 0.02, DeltaPhi(math.Pi-0.01, -math.Pi+0.01), 1e-9)
	assert.InDelta(t, math.Pi, DeltaPhi(0, math.Pi), 1e-9)
}

func TestEnergyValueCountsOrder(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Event: 1, Energy: 2}, {Event: 1, Energy: 1}, {Event: 1, Energy: 2}, {Event: 2, Energy: 3}, {Event: 2, Energy: 1},
		{Event: 2, Energy: 2},
	})
	got := EnergyValueCounts(table)
	assert.Equal(t, []ValueCount{{Value: 2, Count: 3}, {Value: 1, Count: 2}, {Value: 3, Count: 1}}, got)
}

func TestParticleCountsByEnergy(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Detector: model.DetectorEB, Energy: 0.00510999, ParticleType: 1000021},
		{Detector: model.DetectorEB, Energy: 0.00510999, ParticleType: -1000021},
		{Detector: model.DetectorEB, Energy: 0.00510999, ParticleType: 1009213},
		{Detector: model.DetectorEE, Energy: 0.00510999, ParticleType: 1009213},
		{Detector: model.DetectorEB, Energy: 0.00510999, ParticleType: 22},
	})
	got := ParticleCountsByEnergy(table, 0.00510999)
	assert.Equal(t, []ValueCount{{Value: 1000021, Count: 2}, {Value: 1009213, Count: 1}}, got)
}

func TestInteractionMatrix(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Energy: 1800.98, Parent: -1000021, Daughters: "[22]"},
		{Energy: 1800.98, Parent: 1000021, Daughters: "[22]"},
		{Energy: 1800.97, Parent: 1009213, Daughters: "[11, -11]"},
		{Energy: 5, Parent: 1009213, Daughters: "[22]"},
	})
	m, err := InteractionMatrix(table, 1800.97, 1800.99)
	require.NoError(t, err)
	assert.Equal(t, []string{"[22]", "[11, -11]"}, m.Rows)
	assert.Equal(t, []string{"1000021", "1009213"}, m.Cols)
	assert.Equal(t, [][]int{{2, 0}, {0, 1}}, m.Counts)
	assert.Equal(t, 3, m.Total())
}

func TestInteractionMatrixParentsAscending(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Energy: 1800.98, Parent: 1093114, Daughters: "[22]"},
		{Energy: 1800.98, Parent: -1000021, Daughters: "[22]"},
		{Energy: 1800.98, Parent: 211, Daughters: "[11, -11]"},
	})
	m, err := InteractionMatrix(table, 1800.97, 1800.99)
	require.NoError(t, err)
	assert.Equal(t, []string{"211", "1000021", "1093114"}, m.Cols)
	assert.Equal(t, [][]int{{0, 1, 1}, {1, 0, 0}}, m.Counts)
}

func TestMassEnergyMatrix(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Detector: model.DetectorEB, Energy: 1800.98, ParticleType: 1092214},
		{Detector: model.DetectorEB, Energy: 1800.98, ParticleType: -1092114},
		{Detector: model.DetectorEB, Energy: 1801.5, ParticleType: 1009333},
		{Detector: model.DetectorEE, Energy: 1801.5, ParticleType: 1009333},
	})
	m, err := MassEnergyMatrix(table, 1800, 1802)
	require.NoError(t, err)
	assert.Equal(t, []string{"1801.5", "1800.98"}, m.Rows)
	require.Len(t, m.Cols, 9)
	assert.Equal(t, "1800", m.Cols[0])
	assert.Equal(t, 3, m.Total())

	col := func(label string) int {
		for i, c := range m.Cols {
			if c == label {
				return i
			}
		}
		t.Fatalf("missing column %s", label)
		return -1
	}
	assert.Equal(t, 2, m.Counts[1][col("1800.975")])
	assert.Equal(t, 1, m.Counts[0][col("1801.8")])
}

func TestMassEnergyMatrixUnknownPDG(t *testing.T) {
	table := NewTable([]model.HitRecord{{Detector: model.DetectorEB, Energy: 1801, ParticleType: 1000022}})
	_, err := MassEnergyMatrix(table, 1800, 1802)
	assert.True(t, errors.Is(err, ErrUnknownPDG))
}

func TestEventDisplay(t *testing.T) {
	d, err := EventDisplay(loadSample(t), 2, 1800)
	require.NoError(t, err)
	assert.Len(t, d.Hits, 3)
	require.Len(t, d.Arrows, 2)
	assert.InDelta(t, math.Sqrt(1800*1800+300*300), d.Arrows[0].ET, 1e-9)
	assert.InDelta(t, -300, d.Arrows[1].Py, 1e-9)

	_, err = EventDisplay(loadSample(t), 9, 1800)
	assert.Error(t, err)
}

func TestEventDisplaysCoversEveryEvent(t *testing.T) {
	displays, err := EventDisplays(loadSample(t), 1800)
	require.NoError(t, err)
	require.Len(t, displays, 2)
	assert.Equal(t, 1, displays[0].Event)
	assert.Len(t, displays[0].Hits, 4)
	assert.Equal(t, 2, displays[1].Event)

	single, err := EventDisplay(loadSample(t), 2, 1800)
	require.NoError(t, err)
	assert.Equal(t, single, displays[1])
}

func TestEventGroupingScalesWithEvents(t *testing.T) {
	const events = 20000
	rows := make([]model.HitRecord, 0, events*10)
	for ev := events; ev >= 1; ev-- {
		for i := 0; i < 10; i++ {
			rows = append(rows, model.HitRecord{
				Event:  ev,
				X:      130,
				Energy: 1500,
				Rhad1:  model.Momentum{Px: 500},
				Rhad2:  model.Momentum{Px: -500},
			})
		}
	}
	table := NewTable(rows)

	start := time.Now()
	assoc, err := HitsAssociatedWithRHadron(table, 1000, DefaultMaxDeltaPhi)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, events*10, assoc.Hits)
	assert.Equal(t, events*10, assoc.FromRHadron)

	groups := groupByEvent(table)
	require.Len(t, groups, events)
	assert.Equal(t, 1, groups[0][0].Event)
	assert.Equal(t, events, groups[events-1][0].Event)
}

func TestRZPoints(t *testing.T) {
	points, err := RZPoints(loadSample(t), 1000)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 10, points[0].X, 1e-9)
	assert.InDelta(t, 130, points[0].Y, 1e-9)
}

func TestLowEnergyRHadronHistogram(t *testing.T) {
	table := NewTable([]model.HitRecord{
		{Energy: 0.001, ParticleType: 1000021},
		{Energy: 1.0, ParticleType: -1009213},
		{Energy: 0.5, ParticleType: 22},
		{Energy: 3, ParticleType: 1000021},
	})
	h := LowEnergyRHadronHistogram(table)
	assert.EqualValues(t, 2, h.Entries())
	assert.Len(t, h.Binning.Bins, 200)
	assert.InDelta(t, 1, h.Binning.Bins[199].SumW(), 1e-9)
}
