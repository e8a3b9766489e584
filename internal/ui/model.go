package ui

import (
	"context"
	"fmt"
	"strings"

	"minichat/internal/controller"
	"minichat/pkg/domain"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusState int

const (
	focusSidebar focusState = iota
	focusChat
)

const sidebarWidth = 32

// stateChangedMsg is sent by the controller's observer whenever its state
// mutates, including mid-turn when the typing indicator flips on.
type stateChangedMsg struct{}

// turnDoneMsg carries the outcome of a controller call made off the UI
// goroutine.
type turnDoneMsg struct{ err error }

type loadedMsg struct{ err error }

// convItem adapts a conversation for the sidebar list.
type convItem struct{ conv domain.Conversation }

func (i convItem) Title() string { return i.conv.Title }
func (i convItem) Description() string {
	return i.conv.LastUpdated.Local().Format("Jan 2 15:04")
}
func (i convItem) FilterValue() string { return i.conv.Title }

// Model is the terminal front end. All conversation state lives in the
// controller; the model only holds widget state and renders snapshots.
type Model struct {
	ctrl *controller.Controller
	user domain.Identity

	viewport viewport.Model
	textarea textarea.Model
	convList list.Model

	focus       focusState
	sidebarOpen bool
	ready       bool
	width       int
	height      int
	err         error
}

func NewModel(ctrl *controller.Controller, user domain.Identity) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Prompt = "┃ "
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.Focus()

	vp := viewport.New(50, 20)

	convList := list.New(nil, list.NewDefaultDelegate(), sidebarWidth, 20)
	convList.Title = "Conversations"
	convList.SetShowStatusBar(false)
	convList.SetFilteringEnabled(false)
	convList.SetShowHelp(false)

	return &Model{
		ctrl:        ctrl,
		user:        user,
		textarea:    ta,
		viewport:    vp,
		convList:    convList,
		focus:       focusChat,
		sidebarOpen: true,
	}
}

// Attach wires the controller's observer to the running program so that
// state changes made inside a turn repaint immediately.
func (m *Model) Attach(p *tea.Program) {
	m.ctrl.SetOnChange(func() {
		p.Send(stateChangedMsg{})
	})
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tea.EnterAltScreen, m.loadConversations())
}

func (m *Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Load(context.Background())}
	}
}

func (m *Model) startConversation() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.StartConversation(context.Background())}
	}
}

func (m *Model) sendMessage() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.SendMessage(context.Background())}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		clCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlB:
			m.sidebarOpen = !m.sidebarOpen
			if !m.sidebarOpen && m.focus == focusSidebar {
				m.focus = focusChat
				m.textarea.Focus()
			}
			m.resize()
		case tea.KeyTab:
			if !m.sidebarOpen {
				break
			}
			if m.focus == focusSidebar {
				m.focus = focusChat
				m.textarea.Focus()
			} else {
				m.focus = focusSidebar
				m.textarea.Blur()
			}
		case tea.KeyCtrlN:
			m.focus = focusChat
			m.textarea.Focus()
			return m, m.startConversation()
		case tea.KeyEnter:
			if m.focus == focusSidebar {
				if item, ok := m.convList.SelectedItem().(convItem); ok {
					m.ctrl.SelectConversation(item.conv.ID)
					m.focus = focusChat
					m.textarea.Focus()
					m.refresh()
				}
				return m, nil
			}
			// Swallow the key either way so blank or premature Enters
			// do not pile newlines into the textarea.
			if m.ctrl.State().AwaitingReply {
				return m, nil
			}
			if strings.TrimSpace(m.textarea.Value()) == "" {
				return m, nil
			}
			m.ctrl.SetDraft(m.textarea.Value())
			m.textarea.Reset()
			return m, m.sendMessage()
		}

	case stateChangedMsg:
		m.refresh()

	case loadedMsg:
		m.err = msg.err
		m.refresh()

	case turnDoneMsg:
		m.err = msg.err
		m.refresh()
	}

	if m.focus == focusChat {
		m.textarea, taCmd = m.textarea.Update(msg)
	}
	if m.focus == focusSidebar {
		m.convList, clCmd = m.convList.Update(msg)
	}
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(taCmd, vpCmd, clCmd)
}

func (m *Model) resize() {
	chatWidth := m.chatWidth()
	chatHeight := m.height - 6
	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.textarea.SetWidth(chatWidth - 2)
	m.convList.SetSize(sidebarWidth-2, chatHeight+3)
}

func (m *Model) chatWidth() int {
	if m.sidebarOpen {
		return m.width - sidebarWidth - 2
	}
	return m.width - 2
}

// refresh re-renders the sidebar and transcript from a fresh controller
// snapshot.
func (m *Model) refresh() {
	state := m.ctrl.State()

	items := make([]list.Item, len(state.Conversations))
	selected := 0
	for i, conv := range state.Conversations {
		items[i] = convItem{conv: conv}
		if conv.ID == state.ActiveConversationID {
			selected = i
		}
	}
	m.convList.SetItems(items)
	m.convList.Select(selected)

	m.viewport.SetContent(m.renderTranscript(state))
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript(state controller.State) string {
	var b strings.Builder

	conv, ok := state.ActiveConversation()
	if !ok || len(conv.Messages) == 0 {
		name := m.user.Name
		if name == "" {
			name = m.user.Subject
		}
		b.WriteString(fmt.Sprintf("Hello, %s.\n", name))
		b.WriteString("Type a message below to start a conversation.\n\n")
		b.WriteString(helpStyle.Render("Tab sidebar/chat  Ctrl+N new  Ctrl+B toggle sidebar  Ctrl+C quit"))
		b.WriteString("\n\n")
	} else {
		for _, msg := range conv.Messages {
			label := userLabelStyle.Render("You")
			if msg.Role == domain.RoleAssistant {
				label = assistantLabelStyle.Render("Assistant")
			}
			stamp := timestampStyle.Render("[" + msg.CreatedAt.Local().Format("15:04:05") + "]")
			b.WriteString(messageStyle.Render(label + " " + stamp + "\n" + msg.Content + "\n\n"))
		}
	}

	if state.AwaitingReply {
		b.WriteString(messageStyle.Render(typingStyle.Render("Assistant is typing...") + "\n"))
	}
	if m.err != nil {
		b.WriteString(messageStyle.Render(errorStyle.Render("Error: " + m.err.Error() + "\n")))
	}
	return b.String()
}

func (m *Model) View() string {
	if !m.ready {
		return "\n  Connecting..."
	}

	chatWidth := m.chatWidth()
	header := titleStyle.Width(chatWidth).Render("minichat")
	chat := chatStyle.Width(chatWidth).Render(
		fmt.Sprintf("%s\n%s\n%s", header, m.viewport.View(), m.textarea.View()),
	)

	if !m.sidebarOpen {
		return chat
	}

	style := sidebarStyle
	if m.focus == focusSidebar {
		style = sidebarFocusedStyle
	}
	sidebar := style.Width(sidebarWidth).Height(m.height - 1).Render(m.convList.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)
}
