package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"})
	answerStyle = lipgloss.NewStyle().Faint(true)
)

var (
	yesKeys = key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	)
	noKeys = key.NewBinding(
		key.WithKeys("n", "N", "enter", "q", "esc", "ctrl+c"),
		key.WithHelp("n", "no"),
	)
)

// TUI implements UI on a terminal. Results are printed like SimpleUI; prompts
// react to a single key press without waiting for enter.
type TUI struct {
	*SimpleUI
}

// NewTUI creates a new TUI.
func NewTUI(simple *SimpleUI) *TUI {
	return &TUI{SimpleUI: simple}
}

// Confirm asks question and waits for y or n.
func (p *TUI) Confirm(ctx context.Context, question string) (bool, error) {
	model, err := p.run(ctx, newConfirmModel(question))
	if err != nil {
		return false, err
	}

	return model.(confirmModel).confirmed, nil
}

// Pause waits for any key.
func (p *TUI) Pause(ctx context.Context) error {
	_, err := p.run(ctx, pauseModel{})
	return err
}

func (p *TUI) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return runProgram(ctx, model, p.cmd.InOrStdin(), p.cmd.OutOrStdout())
}

func runProgram(ctx context.Context, model tea.Model, in io.Reader, out io.Writer) (tea.Model, error) {
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}

	return final, nil
}

// confirmModel is a one-key yes/no prompt.
type confirmModel struct {
	question  string
	confirmed bool
	done      bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (cm confirmModel) Init() tea.Cmd {
	return nil
}

func (cm confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return cm, nil
	}

	switch {
	case key.Matches(keyMsg, yesKeys):
		cm.confirmed = true
		cm.done = true

		return cm, tea.Quit
	case key.Matches(keyMsg, noKeys):
		cm.done = true

		return cm, tea.Quit
	}

	return cm, nil
}

func (cm confirmModel) View() string {
	var b strings.Builder

	b.WriteString(promptStyle.Render(cm.question))
	b.WriteString(" ")

	if !cm.done {
		b.WriteString(answerStyle.Render("[" + yesKeys.Help().Key + "/" + noKeys.Help().Key + "]"))
		return b.String()
	}

	if cm.confirmed {
		b.WriteString("yes\n")
	} else {
		b.WriteString("no\n")
	}

	return b.String()
}

// pauseModel quits on the first key press.
type pauseModel struct {
	done bool
}

func (pm pauseModel) Init() tea.Cmd {
	return nil
}

func (pm pauseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		pm.done = true
		return pm, tea.Quit
	}

	return pm, nil
}

func (pm pauseModel) View() string {
	if pm.done {
		return "\n"
	}

	return answerStyle.Render("Press any key to continue...")
}
