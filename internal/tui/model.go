// Package tui renders the chat application in a terminal: a login view and a
// chat view, driven by bubbletea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/chat"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	loginPlaceholder = "Enter your username"
	chatPlaceholder  = "Type a message..."
)

// eventMsg wakes the program after the application changed, e.g. when a bot
// reply arrives on a timer goroutine.
type eventMsg app.Event

// Model is the bubbletea model wrapping one app.App.
type Model struct {
	app    *app.App
	events chan app.Event
	input  textinput.Model
	width  int
}

// New creates a Model showing the login view.
func New(cfg app.Config) Model {
	events := make(chan app.Event, 64)
	a := app.New(cfg, func(e app.Event) {
		// Events only trigger a redraw; if the buffer is full a redraw is
		// already queued.
		select {
		case events <- e:
		default:
		}
	})

	ti := textinput.New()
	ti.Placeholder = loginPlaceholder
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()

	return Model{app: a, events: events, input: ti, width: 80}
}

// App returns the wrapped application.
func (m Model) App() *app.App {
	return m.app
}

func waitForEvent(events <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, waitForEvent(m.events)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.app.Close()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.app.Route() == app.RouteChat && m.app.Logout() {
				m.input.Reset()
				m.input.Placeholder = loginPlaceholder
			}
			return m, nil
		case tea.KeyEnter:
			return m.submit(), nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the enter key for whichever form is shown. Blank input
// changes nothing.
func (m Model) submit() Model {
	value := m.input.Value()
	switch m.app.Route() {
	case app.RouteLogin:
		if m.app.Login(value) {
			m.input.Reset()
			m.input.Placeholder = chatPlaceholder
		}
	case app.RouteChat:
		if m.app.Send(value) {
			m.input.Reset()
		}
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.app.Route() == app.RouteChat {
		return m.chatView()
	}
	return m.loginView()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat Login"))
	b.WriteString("\n\n")
	b.WriteString("Username\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: log in · ctrl+c: quit"))
	return borderStyle.Render(b.String()) + "\n"
}

func (m Model) chatView() string {
	id, _ := m.app.Identity()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat Room"))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  logged in as %s", id.Username)))
	b.WriteString("\n\n")

	msgs := m.app.Messages()
	if len(msgs) == 0 {
		b.WriteString(helpStyle.Render("No messages yet. Say hi!"))
		b.WriteString("\n")
	}
	for _, msg := range msgs {
		b.WriteString(renderMessage(msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: send · esc: log out · ctrl+c: quit"))
	return borderStyle.Render(b.String()) + "\n"
}

func renderMessage(msg chat.Message) string {
	author := userStyle.Render(msg.Author)
	if msg.Author == bot.Name {
		author = botStyle.Render(msg.Author)
	}
	return fmt.Sprintf("%s %s: %s", timeStyle.Render("["+msg.Timestamp+"]"), author, msg.Text)
}
