// Package browse provides the Bubble Tea hit-table browser.
package browse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lpchscp/rhadron/internal/cmssw"
	"github.com/lpchscp/rhadron/internal/hits"
	"github.com/lpchscp/rhadron/internal/stats"
)

const (
	tabOverview = iota
	tabDetectors
	tabEnergies
	tabEvents
)

const (
	plotHeight    = 10
	curveWindow   = 5
	topEnergyRows = 10
	eventHitRows  = 20
)

// cutSteps are the energy cuts cycled through with - and =.
var cutSteps = []float64{0, 0.001, 0.01, 0.1, 1, 10, 100, 1000}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Settings are the user-adjustable view parameters.
type Settings struct {
	EnergyCut float64
	Event     int
	NoMuon    bool
	NoECAL    bool
}

// Model implements the Bubble Tea hit browser.
type Model struct {
	source   *hits.Table
	view     *hits.Table
	settings Settings
	path     string

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	detTable  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a browser over t. path is shown in the header.
func NewModel(t *hits.Table, path string, settings Settings) *Model {
	if settings.Event <= 0 {
		settings.Event = 1
	}
	m := &Model{
		source:   t,
		path:     path,
		settings: settings,
		tabs:     []string{"Overview", "Detectors", "Energies", "Events"},
	}
	m.initInputs()
	m.detTable = buildDetectorTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Settings returns the current view settings.
func (m *Model) Settings() Settings {
	return m.settings
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.settings.EnergyCut = nextCut(m.settings.EnergyCut)
			m.refreshReport()
			return m, nil
		case "-":
			m.settings.EnergyCut = prevCut(m.settings.EnergyCut)
			m.refreshReport()
			return m, nil
		case "m":
			m.settings.NoMuon = !m.settings.NoMuon
			m.refreshReport()
			return m, nil
		case "e":
			m.settings.NoECAL = !m.settings.NoECAL
			m.refreshReport()
			return m, nil
		case "n":
			if m.activeTab == tabEvents && m.settings.Event < m.view.MaxEvent() {
				m.settings.Event++
				m.renderTabContents()
			}
			return m, nil
		case "p":
			if m.activeTab == tabEvents && m.settings.Event > 1 {
				m.settings.Event--
				m.renderTabContents()
			}
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabDetectors {
				m.detTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabDetectors {
				m.detTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabDetectors {
				var cmd tea.Cmd
				m.detTable, cmd = m.detTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Energy cut (GeV): "),
		newFilterInput("Event: "),
	}
	m.setInputsFromSettings()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromSettings() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(strconv.FormatFloat(m.settings.EnergyCut, 'g', -1, 64))
	m.filterInputs[1].SetValue(strconv.Itoa(m.settings.Event))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.detTable.SetWidth(m.width)
	m.detTable.SetHeight(maxInt(1, vpHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabDetectors {
		m.detTable.Focus()
	} else {
		m.detTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderSettingsSummary() string {
	summary := fmt.Sprintf("File: %s  cut=%g GeV  muon=%s  ecal=%s",
		m.path, m.settings.EnergyCut, onOff(!m.settings.NoMuon), onOff(!m.settings.NoECAL))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Cut: -/=  Muon: m  ECAL: e  Settings: /  Quit: q"
	if m.activeTab == tabEvents {
		help = "Nav: left/right  Event: p/n  Cut: -/=  Muon: m  ECAL: e  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabDetectors {
		if len(m.report.Detectors) == 0 {
			return fitLines("No hits above the energy cut.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.detTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

// applyToggles derives the browsed table from the source table.
func (m *Model) applyToggles() *hits.Table {
	t := m.source
	if m.settings.NoMuon {
		t = hits.RemoveMuonHits(t)
	}
	if m.settings.NoECAL {
		t = hits.RemoveECALHits(t)
	}
	return t
}

func (m *Model) refreshReport() {
	m.view = m.applyToggles()
	m.report = stats.BuildReport(m.view, m.settings.EnergyCut)
	m.errMsg = ""
	if m.settings.Event > m.view.MaxEvent() {
		m.settings.Event = maxInt(1, m.view.MaxEvent())
	}
	cols, rows := buildDetectorTableData(m.report.Detectors)
	m.detTable.SetColumns(cols)
	m.detTable.SetRows(rows)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabEnergies].SetContent(renderEnergies(m.report))
	m.viewports[tabEvents].SetContent(renderEvents(m.view, m.report, m.settings.Event, width))
}

func renderOverview(r stats.Report, width int) string {
	cards := []string{
		metricCard("Hits", strconv.Itoa(r.Rows)),
		metricCard("R-hadron hits", strconv.Itoa(r.RHadronHits)),
		metricCard("Events", strconv.Itoa(len(r.HitsPerEvent))),
		metricCard("EB", strconv.Itoa(r.EB)),
		metricCard("EE", strconv.Itoa(r.EE)),
		metricCard("ES", strconv.Itoa(r.ES)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	assoc := "R-hadron association: momentum columns not present."
	if r.Association != nil {
		assoc = fmt.Sprintf("R-hadron association: %d of %d hits within dphi < %g of an R-hadron",
			r.Association.FromRHadron, r.Association.Hits, hits.DefaultMaxDeltaPhi)
	}
	perEvent := make([]float64, len(r.HitsPerEvent))
	for i, c := range r.HitsPerEvent {
		perEvent[i] = float64(c)
	}
	spark := truncateLine("Hits per event "+stats.Sparkline(perEvent), width)
	return strings.TrimRight(summary+"\n\n"+assoc+"\n"+spark, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderEnergies(r stats.Report) string {
	var buf bytes.Buffer
	title := fmt.Sprintf("Most frequent energies above %g GeV", r.EnergyCut)
	if err := stats.RenderValueCounts(&buf, title, "Energy [GeV]", r.TopEnergies, topEnergyRows); err != nil {
		return fmt.Sprintf("Failed to render energies: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderEvents(t *hits.Table, r stats.Report, event, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderHitsPerEvent(&buf, r.HitsPerEvent, curveWindow, stats.PlotWidthFor(width), plotHeight); err != nil {
		return fmt.Sprintf("Failed to render events: %v", err)
	}
	if len(r.HitsPerEvent) == 0 {
		return strings.TrimRight(buf.String(), "\n")
	}
	fmt.Fprintf(&buf, "Event %d\n", event)
	rows := hits.EnergyAbove(hits.Event(t, event), r.EnergyCut).Rows()
	if len(rows) == 0 {
		buf.WriteString("No hits above the energy cut.\n")
		return strings.TrimRight(buf.String(), "\n")
	}
	cells := make([][]string, 0, minInt(len(rows), eventHitRows))
	for i, row := range rows {
		if i == eventHitRows {
			break
		}
		cells = append(cells, []string{
			row.Detector,
			strconv.FormatFloat(row.Energy, 'g', 6, 64),
			strconv.Itoa(row.ParticleType),
			fmt.Sprintf("%.1f", row.X),
			fmt.Sprintf("%.1f", row.Y),
			fmt.Sprintf("%.1f", row.Z),
		})
	}
	headers := []string{"Detector", "Energy [GeV]", "PDG", "x [cm]", "y [cm]", "z [cm]"}
	if err := stats.RenderTable(&buf, headers, cells, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}); err != nil {
		return fmt.Sprintf("Failed to render event: %v", err)
	}
	if len(rows) > eventHitRows {
		fmt.Fprintf(&buf, "... %d more\n", len(rows)-eventHitRows)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func buildDetectorTable(counts map[string]int, width, height int) table.Model {
	cols, rows := buildDetectorTableData(counts)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(detectorTableStyles())
	return t
}

func buildDetectorTableData(counts map[string]int) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Detector", Width: 12},
		{Title: "Hits", Width: 8},
		{Title: "Share", Width: 8},
		{Title: "Collections", Width: 40},
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	labels := stats.TopDetectors(counts, 0)
	rows := make([]table.Row, 0, len(labels))
	for _, label := range labels {
		var params []string
		for _, c := range cmssw.ForDetector(label) {
			params = append(params, c.Tag.Instance)
		}
		rows = append(rows, table.Row{
			label,
			strconv.Itoa(counts[label]),
			fmt.Sprintf("%.2f%%", float64(counts[label])/float64(total)*100),
			strings.Join(params, ", "),
		})
	}
	return columns, rows
}

func detectorTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromSettings()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	cut, err := strconv.ParseFloat(strings.TrimSpace(m.filterInputs[0].Value()), 64)
	if err != nil || cut < 0 {
		return fmt.Errorf("invalid energy cut (use a number >= 0)")
	}
	event, err := strconv.Atoi(strings.TrimSpace(m.filterInputs[1].Value()))
	if err != nil || event < 1 {
		return fmt.Errorf("invalid event (use integer >= 1)")
	}
	m.settings.EnergyCut = cut
	m.settings.Event = event
	return nil
}

func nextCut(cut float64) float64 {
	for _, step := range cutSteps {
		if step > cut {
			return step
		}
	}
	return cut
}

func prevCut(cut float64) float64 {
	for i := len(cutSteps) - 1; i >= 0; i-- {
		if cutSteps[i] < cut {
			return cutSteps[i]
		}
	}
	return cutSteps[0]
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
