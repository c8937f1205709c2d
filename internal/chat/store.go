package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"wigchat/internal/api"
)

// DefaultTitle is the placeholder title new sessions start with. A session
// still carrying it gets auto-titled from the first message sent.
const DefaultTitle = "New Chat"

const titleWords = 5

// Backend is the slice of the transport client the core depends on.
// *api.Client satisfies it.
type Backend interface {
	ListSessions(ctx context.Context) ([]api.Session, error)
	CreateSession(ctx context.Context, title string) (api.Session, error)
	RenameSession(ctx context.Context, id, title string) error
	LoadMessages(ctx context.Context, id string) ([]api.Message, error)
	SendMessage(ctx context.Context, sessionID, text, imageURL string) (string, error)
	UploadImage(ctx context.Context, path string) (string, error)
}

// SessionStore keeps the local mirror of the server's session list, most
// recently created first, plus the active-session pointer. Methods are
// safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	backend  Backend
	log      *zap.Logger
	sessions []api.Session
	activeID string
}

func NewSessionStore(backend Backend, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{backend: backend, log: log}
}

// Refresh replaces the mirror with the server's list. On failure the
// previous list is kept and the error is returned for the caller to log.
func (s *SessionStore) Refresh(ctx context.Context) error {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return nil
}

// Create asks the server for a new session, prepends it to the mirror and
// makes it active.
func (s *SessionStore) Create(ctx context.Context, title string) (api.Session, error) {
	sess, err := s.backend.CreateSession(ctx, title)
	if err != nil {
		return api.Session{}, err
	}
	s.mu.Lock()
	s.sessions = append([]api.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.mu.Unlock()
	return sess, nil
}

// Rename updates a session's title on the server, then mutates the local
// copy. Empty or unchanged titles are a no-op. There is no optimistic
// local mutation, so a failure needs no rollback.
func (s *SessionStore) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	s.mu.Lock()
	cur, ok := s.lookup(id)
	s.mu.Unlock()
	if ok && cur.Title == title {
		return nil
	}

	if err := s.backend.RenameSession(ctx, id, title); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Title = title
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// SetActive is a purely local state change; loading the session's messages
// is the controller's job.
func (s *SessionStore) SetActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// Active returns the active session. When the pointer references a session
// no longer in the mirror, it is cleared and reported absent rather than
// treated as fatal.
func (s *SessionStore) Active() (api.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return api.Session{}, false
	}
	sess, ok := s.lookup(s.activeID)
	if !ok {
		s.log.Warn("active session missing from mirror", zap.String("id", s.activeID))
		s.activeID = ""
		return api.Session{}, false
	}
	return sess, true
}

func (s *SessionStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Sessions returns a copy of the mirror, most recently created first.
func (s *SessionStore) Sessions() []api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *SessionStore) lookup(id string) (api.Session, bool) {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return api.Session{}, false
}

// DeriveTitle computes the auto-title applied after a session's first
// exchange: the first few words of the sent text, but only while the
// session still carries the placeholder title.
func DeriveTitle(current, text string) string {
	if current != DefaultTitle {
		return current
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return current
	}
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ")
}
