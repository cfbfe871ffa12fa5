package hits

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/lpchscp/rhadron/internal/model"
)

// ErrUnknownPDG is returned when a PDG id has no entry in the R-hadron mass table.
var ErrUnknownPDG = errors.New("unknown PDG id")

// gluinoMasses maps R-hadron PDG ids to their mass in GeV for the 1800 GeV gluino sample.
var gluinoMasses = map[int]float64{
	1000021: 1800.0,   // ~g
	1000993: 1800.700, // ~g_glueball
	1009213: 1800.650, // ~g_rho+
	1009313: 1800.825, // ~g_K*0
	1009323: 1800.825, // ~g_K*+
	1009113: 1800.650, // ~g_rho0
	1009223: 1800.650, // ~g_omega
	1009333: 1801.800, // ~g_phi
	1091114: 1800.975, // ~g_Delta-
	1092114: 1800.975, // ~g_Delta0
	1092214: 1800.975, // ~g_Delta+
	1092224: 1800.975, // ~g_Delta++
	1093114: 1801.150, // ~g_Sigma*-
	1093214: 1801.150, // ~g_Sigma*0
	1093224: 1801.150, // ~g_Sigma*+
	1093314: 1801.300, // ~g_Xi*-
	1093324: 1801.300, // ~g_Xi*0
	1093334: 1801.600, // ~g_Omega-
}

// RHadronMass returns the mass of an R-hadron state, ignoring the sign of the PDG id.
func RHadronMass(pdg int) (float64, error) {
	m, ok := gluinoMasses[absInt(pdg)]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPDG, pdg)
	}
	return m, nil
}

// Matrix is a labelled count grid. Counts[i][j] belongs to Rows[i] and Cols[j].
type Matrix struct {
	Rows   []string
	Cols   []string
	Counts [][]int
}

// Total returns the sum of all cells.
func (m Matrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// InteractionMatrix counts (|parent|, daughters) pairs for hits with lo <= energy <= hi.
// Rows are daughter sets in first-seen order, columns are parent ids in ascending order.
func InteractionMatrix(t *Table, lo, hi float64) (Matrix, error) {
	if err := t.Require(ColParent, ColDaughters); err != nil {
		return Matrix{}, err
	}
	var daughters []string
	daughterIdx := map[string]int{}
	type key struct{ d, p int }
	counts := map[key]int{}
	rows := EnergyBetween(t, lo, hi).rows
	parentSet := map[int]struct{}{}
	for _, r := range rows {
		parentSet[absInt(r.Parent)] = struct{}{}
	}
	ids := make([]int, 0, len(parentSet))
	for id := range parentSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parents := make([]string, len(ids))
	parentIdx := make(map[int]int, len(ids))
	for i, id := range ids {
		parents[i] = strconv.Itoa(id)
		parentIdx[id] = i
	}
	for _, r := range rows {
		pi := parentIdx[absInt(r.Parent)]
		di, ok := daughterIdx[r.Daughters]
		if !ok {
			di = len(daughters)
			daughterIdx[r.Daughters] = di
			daughters = append(daughters, r.Daughters)
		}
		counts[key{di, pi}]++
	}
	m := Matrix{Rows: daughters, Cols: parents, Counts: make([][]int, len(daughters))}
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(parents))
		for j := range m.Counts[i] {
			m.Counts[i][j] = counts[key{i, j}]
		}
	}
	return m, nil
}

// MassEnergyMatrix counts EB hits with lo <= energy <= hi by deposited energy (rows, descending)
// and R-hadron mass (columns, ascending). Every known mass gets a column.
func MassEnergyMatrix(t *Table, lo, hi float64) (Matrix, error) {
	eb := EnergyBetween(OnlyDetectors(t, model.DetectorEB), lo, hi)

	massSet := map[float64]struct{}{}
	for _, m := range gluinoMasses {
		massSet[m] = struct{}{}
	}
	type key struct{ energy, mass float64 }
	counts := map[key]int{}
	energySet := map[float64]struct{}{}
	for _, r := range eb.rows {
		mass, err := RHadronMass(r.ParticleType)
		if err != nil {
			return Matrix{}, err
		}
		counts[key{r.Energy, mass}]++
		energySet[r.Energy] = struct{}{}
	}

	masses := sortedKeys(massSet)
	energies := sortedKeys(energySet)
	sort.Sort(sort.Reverse(sort.Float64Slice(energies)))

	m := Matrix{
		Rows:   formatFloats(energies),
		Cols:   formatFloats(masses),
		Counts: make([][]int, len(energies)),
	}
	for i, e := range energies {
		m.Counts[i] = make([]int, len(masses))
		for j, mass := range masses {
			m.Counts[i][j] = counts[key{e, mass}]
		}
	}
	return m, nil
}

func sortedKeys(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func formatFloats(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}
