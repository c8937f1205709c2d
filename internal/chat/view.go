// Package chat holds the client-side conversation state machine: the
// session mirror, the send flow, and attachment staging. It has no opinion
// about rendering; the UI plugs in through ConversationView.
package chat

import (
	"github.com/google/uuid"

	"wigchat/internal/api"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one rendered turn of the active conversation. Immutable once
// appended.
type Message struct {
	ID       string
	Role     Role
	Content  string
	ImageURL string
}

// TypingToken pairs a ShowTyping call with the HideTyping that removes it,
// so overlapping show/hide calls cannot cancel an indicator they did not
// create.
type TypingToken string

// NewTypingToken mints a fresh token for a ShowTyping implementation.
func NewTypingToken() TypingToken {
	return TypingToken(uuid.NewString())
}

func newMessageID() string {
	return uuid.NewString()
}

// ConversationView is the rendering surface the controller drives. All
// methods may be called from the controller's goroutine; implementations
// must be safe for that.
type ConversationView interface {
	// Append adds a message to the end of the conversation. The first
	// append replaces any welcome placeholder.
	Append(Message)
	// Clear resets the conversation to the welcome placeholder.
	Clear()
	// ShowTyping displays a typing indicator and returns its token.
	ShowTyping() TypingToken
	// HideTyping removes exactly the indicator the token identifies.
	HideTyping(TypingToken)
	// SetInputEnabled toggles the input surface; disabled while a send is
	// in flight.
	SetInputEnabled(bool)
}

func messageFromAPI(m api.Message) Message {
	role := RoleAssistant
	if m.Role == string(RoleUser) {
		role = RoleUser
	}
	return Message{
		ID:       uuid.NewString(),
		Role:     role,
		Content:  m.Content,
		ImageURL: m.ImageURL,
	}
}
