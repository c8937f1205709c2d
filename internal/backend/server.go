// Package backend is an in-memory implementation of the chat backend's
// wire contract. It backs the `wigchat serve` development command and acts
// as the consistent server double in integration tests.
package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadBytes = 5 * 1024 * 1024

type session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Created  time.Time `json:"-"`
	messages []message
}

type message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

type upload struct {
	name string
	data []byte
}

// Server holds all state in memory; restarting it starts a fresh history.
type Server struct {
	log *zap.Logger

	mu       sync.Mutex
	sessions []*session
	uploads  map[string]upload
}

func NewServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:     log,
		uploads: make(map[string]upload),
	}
}

// Handler returns the HTTP handler implementing the six-endpoint contract.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", s.handleRenameSession).Methods(http.MethodPatch)
	r.HandleFunc("/api/sessions/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{id}", s.handleServeUpload).Methods(http.MethodGet)
	return r
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]*session, len(s.sessions))
	copy(out, s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": out})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New Chat"
	}

	sess := &session{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Created: time.Now(),
	}
	s.mu.Lock()
	s.sessions = append([]*session{sess}, s.sessions...)
	s.mu.Unlock()

	s.log.Info("session created", zap.String("id", sess.ID))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeFailure(w, http.StatusBadRequest, "title is required")
		return
	}

	id := mux.Vars(r)["id"]
	s.mu.Lock()
	sess := s.find(id)
	if sess != nil {
		sess.Title = req.Title
	}
	s.mu.Unlock()

	if sess == nil {
		writeFailure(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	sess := s.find(id)
	var msgs []message
	if sess != nil {
		msgs = append(msgs, sess.messages...)
	}
	s.mu.Unlock()

	if sess == nil {
		writeFailure(w, http.StatusNotFound, "session not found")
		return
	}
	if msgs == nil {
		msgs = []message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": msgs})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
		ImageURL  string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply := replyFor(req.Message, req.ImageURL)

	s.mu.Lock()
	sess := s.find(req.SessionID)
	if sess != nil {
		sess.messages = append(sess.messages,
			message{Role: "user", Content: req.Message, ImageURL: req.ImageURL},
			message{Role: "assistant", Content: reply},
		)
	}
	s.mu.Unlock()

	if sess == nil {
		writeFailure(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "read upload")
		return
	}
	if len(data) > maxUploadBytes {
		writeFailure(w, http.StatusRequestEntityTooLarge, "file exceeds 5 MiB")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = upload{name: hdr.Filename, data: data}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": "/uploads/" + id})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	up, ok := s.uploads[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, up.name, time.Time{}, strings.NewReader(string(up.data)))
}

// find must be called with s.mu held.
func (s *Server) find(id string) *session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// replyFor generates a deterministic canned reply so the client can be
// exercised without a real model behind it.
func replyFor(text, imageURL string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "" && imageURL != "":
		return "Nice picture! What would you like to know about it?"
	case imageURL != "":
		return fmt.Sprintf("Thanks for the image. About %q: this demo backend can only echo, but a real backend would answer here.", text)
	case text == "":
		return "Say something and I'll echo it back."
	default:
		return fmt.Sprintf("You said: %s", text)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
