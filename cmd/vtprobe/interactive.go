package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	probeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectProbe modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	s        *session
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type probeResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(s *session) *interactiveModel {
	return &interactiveModel{s: s, state: stateSelectProbe}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectProbe && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectProbe && m.selected < len(probes)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectProbe:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.runProbe
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.runProbe

			case stateShowResult:
				m.state = stateSelectProbe
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectProbe
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectProbe
				m.result = ""
				m.err = nil
			}
		}

	case probeResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	p := probes[m.selected]
	m.inputs = make([]textinput.Model, len(p.params))
	for i, pr := range p.params {
		ti := textinput.New()
		ti.Placeholder = pr.def
		ti.Prompt = pr.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) runProbe() tea.Msg {
	p := probes[m.selected]
	args := p.defaults()
	for i, input := range m.inputs {
		if v := input.Value(); v != "" {
			args[i] = v
		}
	}

	out, err := p.run(m.s, args)
	if err != nil {
		return probeResultMsg{err: err}
	}
	return probeResultMsg{result: out + "\n" + m.s.stats()}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("vtprobe"))
	b.WriteString(" ")
	b.WriteString(m.s.platform)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectProbe:
		b.WriteString("Select a probe:\n\n")
		for i, p := range probes {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + p.name))
			} else {
				b.WriteString("  " + probeStyle.Render(p.name))
			}
			b.WriteString(" ")
			b.WriteString(helpStyle.Render(p.desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		p := probes[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", probeStyle.Render(p.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(hintStyle.Render(p.params[i].hint))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		p := probes[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", probeStyle.Render(p.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(s *session) error {
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
