// Package tui provides the live follow view for chat-intray.
package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/chat-intray/internal/conn"
	"github.com/cristianoliveira/chat-intray/internal/errors"
	"github.com/cristianoliveira/chat-intray/internal/notify"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// EventMsg wraps an inbound connection event for bubbletea.
type EventMsg conn.InboundEvent

// ErrMsg wraps a transport error for bubbletea.
type ErrMsg conn.ErrorEvent

// chatLine is one rendered message.
type chatLine struct {
	when   time.Time
	sender string
	text   string
}

// Model is the bubbletea model for the follow view.
type Model struct {
	manager *conn.Manager
	center  *notify.Center
	events  <-chan tea.Msg

	channelID    string
	channelTitle string

	lines    []chatLine
	input    textinput.Model
	viewport viewport.Model
	handler  *errors.TUIHandler
	status   string
	width    int
	height   int
	ready    bool
}

// NewModel creates a follow view bound to a live connection manager and
// notify center. Events arrive on the events channel, fed by the manager's
// callbacks.
func NewModel(manager *conn.Manager, center *notify.Center, channelID, channelTitle string, events <-chan tea.Msg) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 1000
	input.Focus()

	return Model{
		manager:      manager,
		center:       center,
		events:       events,
		channelID:    channelID,
		channelTitle: channelTitle,
		input:        input,
		handler:      errors.NewTUIHandler(),
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

// Init starts listening for connection events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				if err := m.manager.SendMessage("", text); err != nil {
					m.handler.Error(err.Error())
				} else {
					m.center.RecordSentMessage(time.Now())
					m.lines = append(m.lines, chatLine{when: time.Now(), sender: "me", text: text})
					m.refreshViewport()
				}
				m.input.SetValue("")
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header, unread line, and input each take one row.
		vpHeight := m.height - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.input.Width = m.width - 4
		m.refreshViewport()

	case EventMsg:
		m.applyEvent(conn.InboundEvent(msg))
		m.refreshViewport()
		cmds = append(cmds, waitForEvent(m.events))

	case ErrMsg:
		m.status = fmt.Sprintf("transport: %s", msg.Reason)
		cmds = append(cmds, waitForEvent(m.events))
	}

	for _, collected := range m.handler.Drain() {
		m.status = collected.Text
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applyEvent folds an inbound event into the message list.
func (m *Model) applyEvent(ev conn.InboundEvent) {
	switch ev.Kind {
	case "messages":
		// Reconciliation batch replaces the visible history.
		m.lines = m.lines[:0]
		for _, message := range ev.Messages {
			m.lines = append(m.lines, chatLine{
				when:   time.UnixMilli(message.Timestamp),
				sender: message.Username,
				text:   message.Details,
			})
		}
	default:
		var payload struct {
			Username string `json:"username"`
			Login    string `json:"login"`
			Title    string `json:"title"`
			Details  string `json:"details"`
		}
		if err := json.Unmarshal(ev.Raw, &payload); err != nil {
			return
		}
		sender := payload.Username
		if sender == "" {
			sender = payload.Login
		}
		text := payload.Details
		if text == "" {
			text = payload.Title
		}
		if text == "" {
			return
		}
		m.lines = append(m.lines, chatLine{when: time.Now(), sender: sender, text: text})
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, line := range m.lines {
		ts := mutedStyle.Render(line.when.Format("15:04"))
		sender := senderStyle.Render(line.sender)
		fmt.Fprintf(&b, "%s %s: %s\n", ts, sender, line.text)
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// unreadSummary renders unread badges for the other channels.
func (m Model) unreadSummary() string {
	unread := m.center.Unread()
	if len(unread) == 0 {
		return mutedStyle.Render("no unread channels")
	}
	ids := make([]string, 0, len(unread))
	for id := range unread {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("#%s (%d)", id, unread[id].Count))
	}
	return unreadStyle.Render("unread: " + strings.Join(parts, " "))
}

// View renders the follow view.
func (m Model) View() string {
	if !m.ready {
		return "connecting..."
	}
	title := m.channelTitle
	if title == "" {
		title = "#" + m.channelID
	}
	header := headerStyle.Render(fmt.Sprintf("%s [%s]", title, m.manager.Status()))
	if m.status != "" {
		header += "  " + errorStyle.Render(m.status)
	}
	return strings.Join([]string{
		header,
		m.viewport.View(),
		m.unreadSummary(),
		m.input.View(),
	}, "\n")
}
