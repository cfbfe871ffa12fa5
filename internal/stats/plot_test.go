package stats

import (
	"bytes"
	"strings"
	"testing"

	"go-hep.org/x/hep/hbook"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotScatterDropsNonPositiveOnLogAxis(t *testing.T) {
	var buf bytes.Buffer
	err := PlotScatter(&buf, "Energy counts", []ScatterSeries{
		{Name: "hits", Points: []XY{{X: 0.001, Y: 3}, {X: 1800, Y: 1}, {X: 0, Y: 5}}},
	}, Axis{Log: true}, Axis{Log: true}, 20, 5)
	if err != nil {
		t.Fatalf("PlotScatter failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Energy counts") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "0.001") || !strings.Contains(out, "1800") {
		t.Fatalf("expected x axis bounds in output: %q", out)
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend for named series")
	}
}

func TestPlotScatterWithoutPointsWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotScatter(&buf, "empty", nil, Axis{}, Axis{}, 20, 5); err != nil {
		t.Fatalf("PlotScatter failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestRenderHistogram(t *testing.T) {
	h := hbook.NewH1D(10, 0, 1)
	for _, v := range []float64{0.05, 0.05, 0.55, 2} {
		h.Fill(v, 1)
	}
	var buf bytes.Buffer
	if err := RenderHistogram(&buf, "Low energy", h, 20, 4, true); err != nil {
		t.Fatalf("RenderHistogram failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Entries: 4") {
		t.Fatalf("expected entry count in output: %q", out)
	}
	if !strings.Contains(out, "Overflow: 1") {
		t.Fatalf("expected overflow in output: %q", out)
	}
}

func TestRebinColumns(t *testing.T) {
	got := rebinColumns([]float64{1, 2, 3, 4}, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Fatalf("unexpected merge: %v", got)
	}
	got = rebinColumns([]float64{1, 2}, 4)
	if len(got) != 4 || got[0] != 1 || got[1] != 1 || got[2] != 2 || got[3] != 2 {
		t.Fatalf("unexpected stretch: %v", got)
	}
}
