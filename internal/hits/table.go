// Package hits loads the calorimeter hit table and derives filtered views and statistics from it.
package hits

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lpchscp/rhadron/internal/model"
)

// ErrMissingColumn is returned when an operation needs a column the table was loaded without.
var ErrMissingColumn = errors.New("missing column")

// Column identifies a logical column of the hit table.
type Column int

// Logical columns. Required columns must be present in every table.
const (
	ColEvent Column = iota
	ColDetector
	ColX
	ColY
	ColZ
	ColR
	ColEnergy
	ColParticleType
	ColParent
	ColDaughters
	ColRhad1Px
	ColRhad1Py
	ColRhad1Pz
	ColRhad2Px
	ColRhad2Py
	ColRhad2Pz
	numColumns
)

var columnHeaders = [numColumns][]string{
	ColEvent:        {"Event"},
	ColDetector:     {"Detector Type", "ECal Type"},
	ColX:            {"Calohit X [cm]"},
	ColY:            {"Calohit Y [cm]"},
	ColZ:            {"Calohit Z [cm]"},
	ColR:            {"Calohit R [cm]"},
	ColEnergy:       {"Calohit Energy [GeV]", "Calo Hit Energy [GeV]"},
	ColParticleType: {"Particle Type"},
	ColParent:       {"Parent"},
	ColDaughters:    {"Daughters"},
	ColRhad1Px:      {"Rhad1_px [GeV]"},
	ColRhad1Py:      {"Rhad1_py [GeV]"},
	ColRhad1Pz:      {"Rhad1_pz [GeV]"},
	ColRhad2Px:      {"Rhad2_px [GeV]"},
	ColRhad2Py:      {"Rhad2_py [GeV]"},
	ColRhad2Pz:      {"Rhad2_pz [GeV]"},
}

var requiredColumns = []Column{ColEvent, ColDetector, ColEnergy, ColParticleType}

// String returns the canonical header of the column.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnHeaders[c][0]
}

// Table is an immutable set of hit records together with the columns it was loaded with.
type Table struct {
	rows    []model.HitRecord
	columns [numColumns]bool
}

// NewTable builds a table from records. All columns are treated as present.
func NewTable(rows []model.HitRecord) *Table {
	t := &Table{rows: append([]model.HitRecord(nil), rows...)}
	for i := range t.columns {
		t.columns[i] = true
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) model.HitRecord {
	return t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []model.HitRecord {
	return append([]model.HitRecord(nil), t.rows...)
}

// Has reports whether the column was present in the source file.
func (t *Table) Has(c Column) bool {
	return c >= 0 && c < numColumns && t.columns[c]
}

// Require returns ErrMissingColumn naming the first absent column.
func (t *Table) Require(cols ...Column) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, c.String())
		}
	}
	return nil
}

// MaxEvent returns the largest event number in the table.
func (t *Table) MaxEvent() int {
	maxEvent := 0
	for _, r := range t.rows {
		if r.Event > maxEvent {
			maxEvent = r.Event
		}
	}
	return maxEvent
}

// Where returns the rows for which keep returns true.
func (t *Table) Where(keep func(model.HitRecord) bool) *Table {
	out := &Table{columns: t.columns}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Load reads a hit table from a CSV file.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hit table: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only table.
			_ = cerr
		}
	}()
	t, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// Read parses a hit table with a header row.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("hit table is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for c, idx := range index {
		t.columns[c] = idx >= 0
	}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func resolveColumns(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(h)] = i
	}
	for c := Column(0); c < numColumns; c++ {
		index[c] = -1
		for _, name := range columnHeaders[c] {
			if pos, ok := positions[name]; ok {
				index[c] = pos
				break
			}
		}
	}
	for _, c := range requiredColumns {
		if index[c] < 0 {
			return index, fmt.Errorf("%w: %q", ErrMissingColumn, c.String())
		}
	}
	return index, nil
}

func parseRow(record []string, index [numColumns]int) (model.HitRecord, error) {
	var row model.HitRecord
	var err error
	field := func(c Column) string {
		pos := index[c]
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}
	parseFloat := func(c Column, dst *float64) {
		if err != nil || index[c] < 0 {
			return
		}
		v, perr := strconv.ParseFloat(field(c), 64)
		if perr != nil {
			err = fmt.Errorf("invalid %s %q", c.String(), field(c))
			return
		}
		*dst = v
	}
	parseInt := func(c Column, dst *int) {
		if err != nil || index[c] < 0 {
			return
		}
		raw := field(c)
		v, perr := strconv.Atoi(raw)
		if perr != nil {
			// Integer columns written through a float formatter come back as "1000021.0".
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || f != float64(int(f)) {
				err = fmt.Errorf("invalid %s %q", c.String(), raw)
				return
			}
			v = int(f)
		}
		*dst = v
	}

	parseInt(ColEvent, &row.Event)
	row.Detector = field(ColDetector)
	parseFloat(ColX, &row.X)
	parseFloat(ColY, &row.Y)
	parseFloat(ColZ, &row.Z)
	parseFloat(ColR, &row.R)
	parseFloat(ColEnergy, &row.Energy)
	parseInt(ColParticleType, &row.ParticleType)
	parseInt(ColParent, &row.Parent)
	row.Daughters = field(ColDaughters)
	parseFloat(ColRhad1Px, &row.Rhad1.Px)
	parseFloat(ColRhad1Py, &row.Rhad1.Py)
	parseFloat(ColRhad1Pz, &row.Rhad1.Pz)
	parseFloat(ColRhad2Px, &row.Rhad2.Px)
	parseFloat(ColRhad2Py, &row.Rhad2.Py)
	parseFloat(ColRhad2Pz, &row.Rhad2.Pz)
	return row, err
}

// Write serializes the table back to CSV using the canonical headers of its present columns.
func (t *Table) Write(w io.Writer) error {
	var cols []Column
	for c := Column(0); c < numColumns; c++ {
		if t.columns[c] {
			cols = append(cols, c)
		}
	}
	writer := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.String()
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, r := range t.rows {
		for i, c := range cols {
			record[i] = formatField(r, c)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatField(r model.HitRecord, c Column) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	switch c {
	case ColEvent:
		return strconv.Itoa(r.Event)
	case ColDetector:
		return r.Detector
	case ColX:
		return f(r.X)
	case ColY:
		return f(r.Y)
	case ColZ:
		return f(r.Z)
	case ColR:
		return f(r.R)
	case ColEnergy:
		return f(r.Energy)
	case ColParticleType:
		return strconv.Itoa(r.ParticleType)
	case ColParent:
		return strconv.Itoa(r.Parent)
	case ColDaughters:
		return r.Daughters
	case ColRhad1Px:
		return f(r.Rhad1.Px)
	case ColRhad1Py:
		return f(r.Rhad1.Py)
	case ColRhad1Pz:
		return f(r.Rhad1.Pz)
	case ColRhad2Px:
		return f(r.Rhad2.Px)
	case ColRhad2Py:
		return f(r.Rhad2.Py)
	case ColRhad2Pz:
		return f(r.Rhad2.Pz)
	default:
		return ""
	}
}
