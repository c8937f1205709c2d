package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"wigchat/internal/api"
)

// ErrBusy is returned by Send while another send is still in flight.
var ErrBusy = errors.New("a send is already in flight")

// ErrorNotice is the assistant-authored message appended when a send
// fails. The failed turn is terminal; the user is the retry loop.
const ErrorNotice = "Sorry, something went wrong. Please try again."

// Controller orchestrates a conversation: it owns the send state machine
// (Idle -> Sending -> Idle), session switching, and the wiring between the
// session store, attachment staging and the view. The UI calls it from
// goroutines, so all state lives behind one mutex.
type Controller struct {
	backend     Backend
	store       *SessionStore
	attachments *AttachmentHandler
	view        ConversationView
	log         *zap.Logger

	// onSessionsChanged fires after the mirror changes shape or titles so
	// the UI can re-render its session list.
	onSessionsChanged func()

	mu      sync.Mutex
	sending bool
}

func NewController(backend Backend, store *SessionStore, attachments *AttachmentHandler, view ConversationView, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		backend:     backend,
		store:       store,
		attachments: attachments,
		view:        view,
		log:         log,
	}
}

// SetOnSessionsChanged registers the session-list refresh hook. Call
// before the controller is shared between goroutines.
func (c *Controller) SetOnSessionsChanged(f func()) {
	c.onSessionsChanged = f
}

func (c *Controller) Store() *SessionStore { return c.store }

func (c *Controller) Attachments() *AttachmentHandler { return c.attachments }

// Sending reports whether a send is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Send runs one user turn end to end. Empty input with no staged
// attachment is a no-op, not an error. Only one send may be in flight; a
// concurrent call returns ErrBusy without dispatching anything.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" && c.attachments.Pending() == "" {
		return nil
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sending = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		c.view.SetInputEnabled(true)
	}()

	// A send with no session lazily creates one; failure here aborts the
	// turn before anything is rendered.
	sess, ok := c.store.Active()
	if !ok {
		var err error
		sess, err = c.store.Create(ctx, DefaultTitle)
		if err != nil {
			c.log.Error("create session failed", zap.Error(err))
			return err
		}
		c.view.Clear()
		c.notifySessionsChanged()
	}

	c.view.SetInputEnabled(false)

	// Optimistic append: the user's own message never waits on the
	// network. The staged attachment is consumed here, one-shot,
	// whatever the send's eventual outcome.
	imageURL := c.attachments.Take()
	c.view.Append(Message{
		ID:       newMessageID(),
		Role:     RoleUser,
		Content:  text,
		ImageURL: imageURL,
	})

	token := c.view.ShowTyping()

	reply, err := c.backend.SendMessage(ctx, sess.ID, text, imageURL)

	// The user may have switched sessions while the request was in
	// flight; a completion for a session that is no longer active must
	// not leak into the new session's view.
	if c.store.ActiveID() != sess.ID {
		c.log.Info("dropping stale send completion",
			zap.String("session", sess.ID),
			zap.String("active", c.store.ActiveID()))
		c.view.HideTyping(token)
		return nil
	}

	c.view.HideTyping(token)

	if err != nil {
		c.log.Warn("send failed", zap.String("session", sess.ID), zap.Error(err))
		c.view.Append(Message{
			ID:      newMessageID(),
			Role:    RoleAssistant,
			Content: ErrorNotice,
		})
		return nil
	}

	c.view.Append(Message{
		ID:      newMessageID(),
		Role:    RoleAssistant,
		Content: reply,
	})

	c.autoTitle(ctx, sess, text)
	return nil
}

// autoTitle renames a session after its first exchange, while the title is
// still the placeholder. Rename failures are absorbed: the next successful
// exchange tries again.
func (c *Controller) autoTitle(ctx context.Context, sess api.Session, text string) {
	title := DeriveTitle(sess.Title, text)
	if title == sess.Title {
		return
	}
	if err := c.store.Rename(ctx, sess.ID, title); err != nil {
		c.log.Warn("auto-title rename failed", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	c.notifySessionsChanged()
}

// SwitchSession makes id the active session and rebuilds the view from the
// backend. Messages are never cached across switches. Not serialized
// against an in-flight send; stale completions are dropped by Send.
func (c *Controller) SwitchSession(ctx context.Context, id string) error {
	c.store.SetActive(id)
	c.view.Clear()

	msgs, err := c.backend.LoadMessages(ctx, id)
	if err != nil {
		c.log.Warn("load messages failed", zap.String("session", id), zap.Error(err))
		return err
	}
	for _, m := range msgs {
		c.view.Append(messageFromAPI(m))
	}
	c.notifySessionsChanged()
	return nil
}

// NewSession creates a fresh session, makes it active, and clears the
// view to the welcome placeholder.
func (c *Controller) NewSession(ctx context.Context) error {
	if _, err := c.store.Create(ctx, DefaultTitle); err != nil {
		c.log.Error("create session failed", zap.Error(err))
		return err
	}
	c.view.Clear()
	c.notifySessionsChanged()
	return nil
}

// RefreshSessions reloads the session mirror. Failures keep the previous
// list and are reported for logging only.
func (c *Controller) RefreshSessions(ctx context.Context) error {
	if err := c.store.Refresh(ctx); err != nil {
		c.log.Warn("refresh sessions failed", zap.Error(err))
		return err
	}
	c.notifySessionsChanged()
	return nil
}

func (c *Controller) notifySessionsChanged() {
	if c.onSessionsChanged != nil {
		c.onSessionsChanged()
	}
}
