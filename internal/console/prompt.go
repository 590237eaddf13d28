package console

import (
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// promptKeys are the bindings that dismiss the exit prompt.
type promptKeys struct {
	Continue key.Binding
	Quit     key.Binding
}

func defaultPromptKeys() promptKeys {
	return promptKeys{
		Continue: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "exit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c", "q"),
			key.WithHelp("esc", "exit"),
		),
	}
}

type promptModel struct {
	message string
	keys    promptKeys
	done    bool
}

func (m promptModel) Init() tea.Cmd { return nil }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(k, m.keys.Continue) || key.Matches(k, m.keys.Quit) {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	return "\n" + dim.Render(m.message) + "\n"
}

// WaitForKeypress shows message and blocks until Enter, Esc or Ctrl+C.
// It keeps a console window open when the tool is started by double-click.
func WaitForKeypress(in io.Reader, out io.Writer, message string) error {
	if message == "" {
		message = "Press Enter to exit..."
	}
	m := promptModel{message: message, keys: defaultPromptKeys()}
	_, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out)).Run()
	return err
}
