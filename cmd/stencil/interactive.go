package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	listWidth     = 32
	defaultWidth  = 100
	defaultHeight = 30
	chromeHeight  = 6
)

type inspectorModel struct {
	filename  string
	summary   string
	entries   []entry
	visible   []int
	selected  int
	filter    textinput.Model
	filtering bool
	detail    viewport.Model
	dump      bool
	width     int
	height    int
}

func newInspectorModel(filename string, res *result, dump bool, width, height int) *inspectorModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter scripts"
	ti.Width = listWidth - 2

	m := &inspectorModel{
		filename: filename,
		summary: fmt.Sprintf("%d bytes live • %d cells",
			res.heap.Live(), res.cells.Len()),
		entries: flatten(res.top),
		filter:  ti,
		dump:    dump,
	}
	m.resize(width, height)
	m.applyFilter()
	return m
}

func (m *inspectorModel) resize(width, height int) {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	m.width, m.height = width, height

	w := max(width-listWidth-4, 20)
	h := max(height-chromeHeight, 5)
	if m.detail.Width == 0 {
		m.detail = viewport.New(w, h)
	} else {
		m.detail.Width = w
		m.detail.Height = h
	}
	m.refreshDetail()
}

func (m *inspectorModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, e := range m.entries {
		if query == "" || strings.Contains(strings.ToLower(e.script.Name()), query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
	m.refreshDetail()
}

func (m *inspectorModel) current() (entry, bool) {
	if len(m.visible) == 0 {
		return entry{}, false
	}
	return m.entries[m.visible[m.selected]], true
}

func (m *inspectorModel) refreshDetail() {
	e, ok := m.current()
	if !ok {
		m.detail.SetContent("no matching scripts")
		return
	}
	m.detail.SetContent(describe(e.script, m.dump))
	m.detail.GotoTop()
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter":
				m.filtering = false
				m.filter.Blur()
				return m, nil
			case "esc":
				m.filtering = false
				m.filter.Blur()
				m.filter.SetValue("")
				m.applyFilter()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refreshDetail()
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.visible)-1 {
				m.selected++
				m.refreshDetail()
			}
			return m, nil

		case "/":
			m.filtering = true
			return m, m.filter.Focus()

		case "d":
			m.dump = !m.dump
			m.refreshDetail()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *inspectorModel) View() string {
	var list strings.Builder
	for i, idx := range m.visible {
		e := m.entries[idx]
		line := strings.Repeat("  ", e.depth) + e.script.Name()
		if len(line) > listWidth-2 {
			line = line[:listWidth-3] + "…"
		}
		if i == m.selected {
			list.WriteString(selectedStyle.Render("> " + line))
		} else {
			list.WriteString("  " + nameStyle.Render(line))
		}
		list.WriteString("\n")
	}
	if m.filtering || m.filter.Value() != "" {
		list.WriteString("\n")
		list.WriteString(m.filter.View())
	}

	left := lipgloss.NewStyle().Width(listWidth).Render(list.String())
	right := detailStyle.Render(m.detail.View())

	var b strings.Builder
	b.WriteString(titleStyle.Render("Stencil Inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(infoStyle.Render(m.summary))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • / filter • d hex dump • pgup/pgdn scroll • q quit"))
	return b.String()
}

func runInteractive(filename string, res *result, dump bool) error {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height = defaultWidth, defaultHeight
	}
	p := tea.NewProgram(newInspectorModel(filename, res, dump, width, height), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
