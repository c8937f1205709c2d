package tui

import (
	"wigchat/internal/chat"
)

type viewEventKind int

const (
	evAppend viewEventKind = iota
	evClear
	evShowTyping
	evHideTyping
	evInput
	evSessions
)

type viewEvent struct {
	kind    viewEventKind
	message chat.Message
	token   chat.TypingToken
	enabled bool
}

// sink adapts chat.ConversationView onto the bubbletea update loop: the
// controller runs in goroutines and its view calls become events drained
// by the model's waitEvent command. Sends block when the buffer is full so
// no conversation content is ever dropped.
type sink struct {
	events chan viewEvent
}

func newSink() *sink {
	return &sink{events: make(chan viewEvent, 256)}
}

func (s *sink) Append(m chat.Message) {
	s.events <- viewEvent{kind: evAppend, message: m}
}

func (s *sink) Clear() {
	s.events <- viewEvent{kind: evClear}
}

func (s *sink) ShowTyping() chat.TypingToken {
	tok := chat.NewTypingToken()
	s.events <- viewEvent{kind: evShowTyping, token: tok}
	return tok
}

func (s *sink) HideTyping(tok chat.TypingToken) {
	s.events <- viewEvent{kind: evHideTyping, token: tok}
}

func (s *sink) SetInputEnabled(enabled bool) {
	s.events <- viewEvent{kind: evInput, enabled: enabled}
}

// sessionsChanged is the controller's onSessionsChanged hook.
func (s *sink) sessionsChanged() {
	s.events <- viewEvent{kind: evSessions}
}
