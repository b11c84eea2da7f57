package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/lua-runtime/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyWindow = 20

type replEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	eng     *engine.Engine
	input   textinput.Model
	history []replEntry
}

func newReplModel(eng *engine.Engine) *replModel {
	ti := textinput.New()
	ti.Placeholder = "expression"
	ti.Prompt = promptStyle.Render("lua> ")
	ti.Focus()

	return &replModel{
		eng:   eng,
		input: ti,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, m.evaluate(line))
			if len(m.history) > historyWindow {
				m.history = m.history[len(m.history)-historyWindow:]
			}
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *replModel) evaluate(line string) replEntry {
	result, err := m.eng.Eval(line)
	if err != nil {
		return replEntry{input: line, output: err.Error(), isErr: true}
	}
	return replEntry{input: line, output: result.String()}
}

func (m *replModel) View() string {
	s := titleStyle.Render("lua-runtime") + "\n\n"

	for _, entry := range m.history {
		s += promptStyle.Render("lua> ") + entry.input + "\n"
		if entry.isErr {
			s += errorStyle.Render(entry.output) + "\n"
		} else {
			s += resultStyle.Render(entry.output) + "\n"
		}
	}

	s += "\n" + m.input.View() + "\n"
	s += helpStyle.Render("enter: evaluate • ctrl+c: quit")
	return s
}

func runInteractive(eng *engine.Engine) error {
	p := tea.NewProgram(newReplModel(eng))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	return nil
}
