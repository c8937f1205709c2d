// Package tui renders the chat client. All conversation logic lives in
// internal/chat; this package translates key presses into controller calls
// and controller view events into screen updates.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"wigchat/internal/api"
	"wigchat/internal/chat"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSessions
	focusChat
)

const welcomeText = "Hello! How can I help you today?"

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type viewEventMsg struct{ ev viewEvent }

type spinMsg struct{}

type opDoneMsg struct {
	op  string
	err error
}

type Model struct {
	ctrl *chat.Controller
	sink *sink
	log  *zap.Logger

	theme    Theme
	keys     keyMap
	markdown *MarkdownRenderer

	width  int
	height int
	ready  bool

	focus focusArea

	sessions   []api.Session
	sessionSel int

	messages     []chat.Message
	typing       map[chat.TypingToken]bool
	inputEnabled bool
	renaming     bool

	input  textarea.Model
	chatVP viewport.Model

	spinnerPos int
	status     string
	statusErr  bool
}

// New wires a model around the controller. The controller's view must be
// the sink returned by NewSink for the same model; Build does both.
func New(ctrl *chat.Controller, s *sink, theme Theme, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message. Enter sends, /attach <path> stages an image."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	return &Model{
		ctrl:         ctrl,
		sink:         s,
		log:          log,
		theme:        theme,
		keys:         newKeyMap(),
		markdown:     NewMarkdownRenderer(theme),
		width:        100,
		height:       30,
		focus:        focusInput,
		typing:       make(map[chat.TypingToken]bool),
		inputEnabled: true,
		input:        ta,
		status:       "Ready",
	}
}

// Build assembles the full client stack for the TUI: controller, sink and
// model, with the sink registered as the controller's view.
func Build(backend chat.Backend, theme Theme, log *zap.Logger) *Model {
	s := newSink()
	store := chat.NewSessionStore(backend, log)
	attachments := chat.NewAttachmentHandler(backend, log)
	ctrl := chat.NewController(backend, store, attachments, s, log)
	ctrl.SetOnSessionsChanged(s.sessionsChanged)
	return New(ctrl, s, theme, log)
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitEvent(), m.bootstrap())
}

// bootstrap mirrors the original client's startup: load the session list,
// then open a fresh conversation.
func (m *Model) bootstrap() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := m.ctrl.RefreshSessions(ctx); err != nil {
			m.log.Warn("session list unavailable at startup", zap.Error(err))
		}
		return opDoneMsg{op: "new chat", err: m.ctrl.NewSession(ctx)}
	}
}

func (m *Model) waitEvent() tea.Cmd {
	events := m.sink.events
	return func() tea.Msg {
		return viewEventMsg{ev: <-events}
	}
}

func (m *Model) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		l := m.layout()
		if !m.ready {
			m.chatVP = viewport.New(l.chatW-4, l.mainH-3)
			m.ready = true
		} else {
			m.chatVP.Width = l.chatW - 4
			m.chatVP.Height = l.mainH - 3
		}
		m.input.SetWidth(maxInt(10, m.width-8))
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case viewEventMsg:
		m.applyViewEvent(msg.ev)
		cmds := []tea.Cmd{m.waitEvent()}
		if msg.ev.kind == evShowTyping {
			cmds = append(cmds, m.spinTick())
		}
		return m, tea.Batch(cmds...)

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if len(m.typing) > 0 {
			m.refreshChat()
			return m, m.spinTick()
		}
		return m, nil

	case opDoneMsg:
		m.finishOp(msg)
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Bracketed paste of an image path stages an attachment; everything
	// else falls through to the input.
	if msg.Paste && m.focus == focusInput && !m.renaming {
		if path, ok := pastedImagePath(string(msg.Runes)); ok {
			return m, m.uploadCmd(path)
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.FocusNext):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.renaming = false
		return m, m.opCmd("new chat", func(ctx context.Context) error {
			return m.ctrl.NewSession(ctx)
		})

	case key.Matches(msg, m.keys.Refresh):
		return m, m.opCmd("reload sessions", func(ctx context.Context) error {
			return m.ctrl.RefreshSessions(ctx)
		})

	case key.Matches(msg, m.keys.DropImage):
		if m.ctrl.Attachments().Pending() != "" {
			m.ctrl.Attachments().Discard()
			m.setStatus("Image removed", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.CancelEdit):
		if m.renaming {
			m.renaming = false
			m.input.Reset()
			m.input.Placeholder = "Type a message. Enter sends, /attach <path> stages an image."
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m, m.onEnter()
	}

	switch m.focus {
	case focusSessions:
		switch msg.String() {
		case "up", "k":
			if m.sessionSel > 0 {
				m.sessionSel--
			}
			return m, nil
		case "down", "j":
			if m.sessionSel < len(m.sessions)-1 {
				m.sessionSel++
			}
			return m, nil
		case "r":
			return m, m.beginRename()
		}
		return m, nil

	case focusChat:
		switch msg.Type {
		case tea.KeyUp:
			m.chatVP.LineUp(1)
			return m, nil
		case tea.KeyDown:
			m.chatVP.LineDown(1)
			return m, nil
		case tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.inputEnabled || m.renaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) onEnter() tea.Cmd {
	if m.renaming {
		return m.commitRename()
	}

	if m.focus == focusSessions {
		if m.sessionSel >= 0 && m.sessionSel < len(m.sessions) {
			id := m.sessions[m.sessionSel].ID
			return m.opCmd("open session", func(ctx context.Context) error {
				return m.ctrl.SwitchSession(ctx, id)
			})
		}
		return nil
	}

	if m.focus == focusChat || !m.inputEnabled {
		return nil
	}

	val := strings.TrimSpace(m.input.Value())

	if path, ok := strings.CutPrefix(val, "/attach "); ok {
		m.input.Reset()
		return m.uploadCmd(strings.TrimSpace(path))
	}

	if val == "" && m.ctrl.Attachments().Pending() == "" {
		return nil
	}

	m.input.Reset()
	return func() tea.Msg {
		return opDoneMsg{op: "send", err: m.ctrl.Send(context.Background(), val)}
	}
}

func (m *Model) beginRename() tea.Cmd {
	if m.sessionSel < 0 || m.sessionSel >= len(m.sessions) {
		return nil
	}
	m.renaming = true
	m.input.Reset()
	m.input.SetValue(m.sessions[m.sessionSel].Title)
	m.input.Placeholder = "New title. Enter saves, Esc cancels."
	m.input.Focus()
	return textarea.Blink
}

func (m *Model) commitRename() tea.Cmd {
	m.renaming = false
	title := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.input.Placeholder = "Type a message. Enter sends, /attach <path> stages an image."
	if m.sessionSel < 0 || m.sessionSel >= len(m.sessions) {
		return nil
	}
	id := m.sessions[m.sessionSel].ID
	return m.opCmd("rename", func(ctx context.Context) error {
		return m.ctrl.Store().Rename(ctx, id, title)
	})
}

func (m *Model) uploadCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	m.setStatus("Uploading image…", false)
	return func() tea.Msg {
		_, err := m.ctrl.Attachments().Upload(context.Background(), path)
		return opDoneMsg{op: "upload", err: err}
	}
}

func (m *Model) opCmd(op string, f func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: f(context.Background())}
	}
}

func (m *Model) finishOp(msg opDoneMsg) {
	switch {
	case msg.err == nil:
		switch msg.op {
		case "upload":
			m.setStatus("Image attached to your next message", false)
		case "send", "rename":
			m.setStatus("Ready", false)
		default:
			m.setStatus("Ready", false)
		}
	case errors.Is(msg.err, chat.ErrBusy):
		m.setStatus("Still sending, hold on", true)
	case errors.Is(msg.err, chat.ErrTooLarge):
		m.setStatus("Image is larger than 5 MiB", true)
	case errors.Is(msg.err, chat.ErrInvalidType):
		m.setStatus("That file is not an image", true)
	default:
		m.log.Warn("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
		switch msg.op {
		case "upload":
			m.setStatus("Could not upload the image, try again", true)
		case "new chat", "send":
			// Without a session nothing can proceed; this is the one
			// blocking notice the client shows.
			m.setStatus("Cannot create a chat session, is the server up?", true)
		case "reload sessions", "open session":
			m.setStatus("Could not reach the server", true)
		default:
			m.setStatus("Something went wrong", true)
		}
	}
	m.syncSessions()
}

func (m *Model) applyViewEvent(ev viewEvent) {
	switch ev.kind {
	case evAppend:
		m.messages = append(m.messages, ev.message)
		m.refreshChat()
		m.chatVP.GotoBottom()
	case evClear:
		m.messages = nil
		m.refreshChat()
	case evShowTyping:
		m.typing[ev.token] = true
		m.refreshChat()
		m.chatVP.GotoBottom()
	case evHideTyping:
		delete(m.typing, ev.token)
		m.refreshChat()
	case evInput:
		m.inputEnabled = ev.enabled
		if ev.enabled {
			m.focus = focusInput
			m.input.Focus()
		} else if !m.renaming {
			m.input.Blur()
		}
	case evSessions:
		m.syncSessions()
	}
}

func (m *Model) syncSessions() {
	m.sessions = m.ctrl.Store().Sessions()
	if m.sessionSel >= len(m.sessions) {
		m.sessionSel = len(m.sessions) - 1
	}
	if m.sessionSel < 0 {
		m.sessionSel = 0
	}
}

func (m *Model) cycleFocus() {
	m.focus++
	if m.focus > focusChat {
		m.focus = focusInput
	}
	if m.focus == focusInput && m.inputEnabled {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

type layoutInfo struct {
	mainH    int
	sideW    int
	chatW    int
	inputH   int
}

func (m *Model) layout() layoutInfo {
	inputH := 3
	mainH := m.height - 1 - 1 - inputH // top bar and footer are one line each
	if mainH < 3 {
		mainH = 3
	}
	sideW := 0
	chatW := m.width
	if m.width >= 70 {
		sideW = m.width / 4
		if sideW > 32 {
			sideW = 32
		}
		chatW = m.width - sideW - 1
	}
	return layoutInfo{mainH: mainH, sideW: sideW, chatW: chatW, inputH: inputH}
}

func (m *Model) View() string {
	if !m.ready {
		return "…"
	}
	l := m.layout()

	top := m.renderTopBar()
	main := m.renderMain(l)
	input := m.renderInput(l)
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, main, input, footer)
}

func (m *Model) renderTopBar() string {
	left := m.theme.TopBarTitle.Render("wigchat")
	status := m.status
	if m.statusErr {
		status = m.theme.StatusErr.Render(status)
	} else if len(m.typing) > 0 {
		status = m.theme.Typing.Render(spinnerFrames[m.spinnerPos] + " " + status)
	} else {
		status = m.theme.Status.Render(status)
	}
	right := m.theme.TopBarMeta.Render(time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	a := gap / 2
	return m.theme.TopBar.Render(left + strings.Repeat(" ", a) + status + strings.Repeat(" ", gap-a) + right)
}

func (m *Model) renderMain(l layoutInfo) string {
	chatPane := m.renderChatPane(l)
	if l.sideW == 0 {
		return chatPane
	}
	side := m.renderSessionsPane(l)
	sep := m.theme.PaneDivider.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, side, sep, chatPane)
}

func (m *Model) renderSessionsPane(l layoutInfo) string {
	titleText := fmt.Sprintf("Chats (%d)", len(m.sessions))
	box := m.theme.Pane
	title := m.theme.PaneTitle.Render(titleText)
	if m.focus == focusSessions {
		box = m.theme.PaneFocused
		title = m.theme.PaneTitleF.Render(titleText)
	}

	activeID := m.ctrl.Store().ActiveID()
	var b strings.Builder
	b.WriteString(title + "\n")
	visible := l.mainH - 3
	for i, sess := range m.sessions {
		if i >= visible {
			b.WriteString(m.theme.SessionItem.Render(fmt.Sprintf("… %d more", len(m.sessions)-visible)))
			break
		}
		label := truncate(sess.Title, maxInt(8, l.sideW-6))
		style := m.theme.SessionItem
		prefix := "  "
		if sess.ID == activeID {
			style = m.theme.SessionActive
			prefix = "● "
		}
		if m.focus == focusSessions && i == m.sessionSel {
			style = m.theme.SessionSel
			prefix = "> "
		}
		b.WriteString(style.Render(prefix+label) + "\n")
	}
	if len(m.sessions) == 0 {
		b.WriteString(m.theme.SessionItem.Render("  no chats yet"))
	}
	return box.Width(l.sideW).Height(l.mainH).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderChatPane(l layoutInfo) string {
	title := m.theme.PaneTitle.Render("Conversation")
	box := m.theme.Pane
	if m.focus == focusChat {
		box = m.theme.PaneFocused
		title = m.theme.PaneTitleF.Render("Conversation")
	}
	return box.Width(l.chatW).Height(l.mainH).Render(title + "\n" + m.chatVP.View())
}

func (m *Model) refreshChat() {
	width := m.layout().chatW - 6
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	if len(m.messages) == 0 && len(m.typing) == 0 {
		b.WriteString(m.theme.Welcome.Render(welcomeText))
	}
	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	if len(m.typing) > 0 {
		b.WriteString(m.theme.Typing.Render(spinnerFrames[m.spinnerPos] + " typing…"))
	}
	m.chatVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderMessage(msg chat.Message, width int) string {
	var head string
	switch msg.Role {
	case chat.RoleUser:
		head = m.theme.RoleYou.Render("YOU")
	case chat.RoleAssistant:
		if msg.Content == chat.ErrorNotice {
			head = m.theme.RoleErr.Render("BOT")
		} else {
			head = m.theme.RoleAI.Render("BOT")
		}
	}

	var parts []string
	parts = append(parts, head)
	if msg.ImageURL != "" {
		parts = append(parts, m.theme.Attachment.Render("[image] "+msg.ImageURL))
	}
	if msg.Content != "" {
		if msg.Role == chat.RoleAssistant && msg.Content != chat.ErrorNotice {
			parts = append(parts, m.markdown.Render(msg.Content, width))
		} else {
			parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content))
		}
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderInput(l layoutInfo) string {
	box := m.theme.InputBox
	switch {
	case !m.inputEnabled && !m.renaming:
		box = m.theme.InputBoxDisabled
	case m.focus == focusInput || m.renaming:
		box = m.theme.InputBoxF
	}

	var lines []string
	if pending := m.ctrl.Attachments().Pending(); pending != "" {
		lines = append(lines, m.theme.Attachment.Render("image staged: "+pending+"  (ctrl+x removes)"))
	}
	lines = append(lines, m.input.View())
	return box.Width(maxInt(10, m.width-2)).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	hints := "Tab focus  Enter send  Ctrl+N new chat  r rename  Ctrl+X drop image  Ctrl+C quit"
	if m.width < 80 {
		hints = "Tab focus  Enter send  Ctrl+N new  Ctrl+C quit"
	}
	return m.theme.Footer.Width(m.width).Render(hints)
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return string(r[:maxInt(0, maxRunes)])
	}
	return string(r[:maxRunes-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
