package browse

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lpchscp/rhadron/internal/generator"
	"github.com/lpchscp/rhadron/internal/hits"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	table := hits.NewTable(generator.NewSeeded(3).Generate(12, 30, 1800))
	m := NewModel(table, "hits.csv", Settings{EnergyCut: 1})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewShowsTabsAndSettings(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	for _, want := range []string{"Overview", "Detectors", "Energies", "Events", "cut=1 GeV", "hits.csv"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestCutKeysStepThroughLevels(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("="))
	if got := m.Settings().EnergyCut; got != 10 {
		t.Fatalf("expected cut 10, got %g", got)
	}
	m.Update(key("-"))
	m.Update(key("-"))
	if got := m.Settings().EnergyCut; got != 0.1 {
		t.Fatalf("expected cut 0.1, got %g", got)
	}
	if m.report.EnergyCut != 0.1 {
		t.Fatalf("report not refreshed: %g", m.report.EnergyCut)
	}
}

func TestToggleMuonRemovesMuonRows(t *testing.T) {
	m := newTestModel(t)
	before := m.view.Len()
	m.Update(key("m"))
	if !m.Settings().NoMuon {
		t.Fatalf("expected muon filter on")
	}
	if m.view.Len() >= before {
		t.Fatalf("expected fewer rows after removing muon hits: %d >= %d", m.view.Len(), before)
	}
	for _, label := range []string{"MuonDT", "MuonCSC", "MuonRPC"} {
		if m.report.Detectors[label] != 0 {
			t.Fatalf("muon label %s still present", label)
		}
	}
}

func TestEventNavigation(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabEvents {
		t.Fatalf("expected events tab, got %d", m.activeTab)
	}
	m.Update(key("n"))
	m.Update(key("n"))
	m.Update(key("p"))
	if got := m.Settings().Event; got != 2 {
		t.Fatalf("expected event 2, got %d", got)
	}
	if !strings.Contains(m.View(), "Event 2") {
		t.Fatalf("expected event detail in view")
	}
}

func TestSettingsFormValidates(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected settings form")
	}
	m.filterInputs[0].SetValue("abc")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterError == "" {
		t.Fatalf("expected validation error")
	}
	m.filterInputs[0].SetValue("100")
	m.filterInputs[1].SetValue("4")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected form to close: %s", m.filterError)
	}
	if s := m.Settings(); s.EnergyCut != 100 || s.Event != 4 {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestCutSteps(t *testing.T) {
	if got := nextCut(1000); got != 1000 {
		t.Fatalf("expected cut to stay at 1000, got %g", got)
	}
	if got := nextCut(0.5); got != 1 {
		t.Fatalf("expected 1, got %g", got)
	}
	if got := prevCut(0); got != 0 {
		t.Fatalf("expected 0, got %g", got)
	}
	if got := prevCut(50); got != 10 {
		t.Fatalf("expected 10, got %g", got)
	}
}

func TestFitLines(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	if out != "a  \nb  " {
		t.Fatalf("unexpected fit: %q", out)
	}
}
