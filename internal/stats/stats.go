package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lpchscp/rhadron/internal/hits"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderLocations prints the EB/EE/ES hit counts above an energy cut.
func RenderLocations(w io.Writer, eb, ee, es int, energyCut float64) error {
	total := eb + ee + es
	share := func(n int) string {
		if total == 0 {
			return "-"
		}
		return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
	}
	if _, err := fmt.Fprintf(w, "ECAL hits with energy > %g GeV\n", energyCut); err != nil {
		return err
	}
	rows := [][]string{
		{"EB", strconv.Itoa(eb), share(eb)},
		{"EE", strconv.Itoa(ee), share(ee)},
		{"ES", strconv.Itoa(es), share(es)},
		{"Total", strconv.Itoa(total), ""},
	}
	return RenderTable(w, []string{"Region", "Hits", "Share"}, rows, map[int]bool{1: true, 2: true})
}

// RenderHitsPerEvent prints a summary and a curve of hits per event.
func RenderHitsPerEvent(w io.Writer, counts []int, window, width, height int) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}
	values := make([]float64, len(counts))
	var total, most, empty int
	for i, c := range counts {
		values[i] = float64(c)
		total += c
		if c > most {
			most = c
		}
		if c == 0 {
			empty++
		}
	}
	if _, err := fmt.Fprintf(w, "Events: %d\nHits: %d\nAvg hits/event: %.2f\nMax hits/event: %d\nEvents without hits: %d\n\n",
		len(counts), total, float64(total)/float64(len(counts)), most, empty); err != nil {
		return err
	}
	return PlotSeries(w, "Hits per Event", []Series{
		{Name: "Hits", Values: values},
		{Name: fmt.Sprintf("Moving avg (%d)", window), Values: MovingAverage(values, window)},
	}, width, height)
}

// RenderValueCounts prints the top n value counts. n <= 0 prints all of them.
func RenderValueCounts(w io.Writer, title, valueHeader string, counts []hits.ValueCount, n int) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "No entries found.")
		return err
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	top := TopValueCounts(counts, n)
	rows := make([][]string, 0, len(top))
	for _, vc := range top {
		rows = append(rows, []string{strconv.FormatFloat(vc.Value, 'g', -1, 64), strconv.Itoa(vc.Count)})
	}
	return RenderTable(w, []string{valueHeader, "Count"}, rows, map[int]bool{1: true})
}

// RenderDetectorCounts prints the number of hits per detector label, most hits first.
func RenderDetectorCounts(w io.Writer, counts map[string]int) error {
	labels := TopDetectors(counts, 0)
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return RenderTable(w, []string{"Detector", "Hits"}, rows, map[int]bool{1: true})
}

// RenderMatrix prints a count grid with empty cells for zero counts.
func RenderMatrix(w io.Writer, title, corner string, m hits.Matrix) error {
	if len(m.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No entries found.")
		return err
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	headers := append([]string{corner}, m.Cols...)
	rightAlign := map[int]bool{}
	for i := range m.Cols {
		rightAlign[i+1] = true
	}
	rows := make([][]string, len(m.Rows))
	for i, label := range m.Rows {
		row := make([]string, 0, len(m.Cols)+1)
		row = append(row, label)
		for _, c := range m.Counts[i] {
			cell := ""
			if c != 0 {
				cell = strconv.Itoa(c)
			}
			row = append(row, cell)
		}
		rows[i] = row
	}
	return RenderTable(w, headers, rows, rightAlign)
}

// sortedLabels returns map keys in lexical order.
func sortedLabels(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
