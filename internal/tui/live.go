package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/qflow/internal/defect"
	"github.com/san-kum/qflow/internal/flow"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	mapStyle    = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(44)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

// shades map relative defect strength to a glyph ramp.
var shades = []rune{' ', '.', ':', '-', '=', '+', '*', '#', '%', '@'}

type TickMsg time.Time

// Model drives a flow interactively: one RG step per tick while running,
// with the defect magnitude map and trajectory traces alongside.
type Model struct {
	driver  *flow.Driver
	title   string
	running bool
	err     error

	defectHist []float64
	deltaHist  []float64
}

func NewModel(driver *flow.Driver, title string) Model {
	traj := driver.Trajectory()
	m := Model{
		driver: driver, title: title, running: true,
		defectHist: flow.MagnitudeTrace(traj),
		deltaHist:  flow.DeltaTrace(traj),
	}
	return m
}

func (m *Model) push(snap flow.Snapshot) {
	m.defectHist = append(m.defectHist, snap.DefectMax)
	if len(m.defectHist) > historyCapacity {
		m.defectHist = m.defectHist[1:]
	}
	m.deltaHist = append(m.deltaHist, snap.Delta)
	if len(m.deltaHist) > historyCapacity {
		m.deltaHist = m.deltaHist[1:]
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/20, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.driver.State().Terminal() {
				m.step()
			}
		}
	case TickMsg:
		if m.running && !m.driver.State().Terminal() && m.err == nil {
			m.step()
		}
		return m, tea.Tick(time.Second/20, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	if _, err := m.driver.Advance(); err != nil {
		m.err = err
		m.running = false
		return
	}
	traj := m.driver.Trajectory()
	m.push(traj[len(traj)-1])
}

// magnitudeMap renders the defect strength over the (u, v) chart as a
// glyph raster; 3D lattices show the middle w slice.
func (m Model) magnitudeMap() string {
	obj := m.driver.Current()
	mag, err := defect.Magnitude(obj.Tensor, obj.Geo)
	if err != nil {
		return errStyle.Render(err.Error())
	}
	peak := 0.0
	for _, v := range mag {
		if v > peak {
			peak = v
		}
	}

	geo := obj.Geo
	w := geo.Nw / 2
	var b strings.Builder
	for v := geo.Nv - 1; v >= 0; v-- {
		for u := 0; u < geo.Nu; u++ {
			val := mag[geo.Index(u, v, w)]
			idx := 0
			if peak > 0 {
				idx = int(val / peak * float64(len(shades)-1))
			}
			b.WriteRune(shades[idx])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) View() string {
	traj := m.driver.Trajectory()
	last := traj[len(traj)-1]

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	status := strings.ToUpper(m.driver.State().String())
	if !m.running && !m.driver.State().Terminal() {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.defectHist) > 1 {
		chart := asciigraph.Plot(m.defectHist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Peak defect"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.deltaHist) > 1 {
		chart := asciigraph.Plot(m.deltaHist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Step delta"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Scale") + valueStyle.Render(fmt.Sprintf("%.4f", last.Scale)) + "\n")
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", last.Step)) + "\n")
	s.WriteString(labelStyle.Render("Mean |Q|") + valueStyle.Render(fmt.Sprintf("%.4f", last.MeanNorm)) + "\n")
	s.WriteString(labelStyle.Render("tr Q^2") + valueStyle.Render(fmt.Sprintf("%.4f", last.TraceQ2)) + "\n")
	s.WriteString(labelStyle.Render("Peak defect") + valueStyle.Render(fmt.Sprintf("%.4g", last.DefectMax)) + "\n")

	if m.err != nil {
		s.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("\nSP:Pause S:Step Q:Quit"))

	mapView := mapStyle.Render(m.magnitudeMap())
	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, mapView, statsView)
}
