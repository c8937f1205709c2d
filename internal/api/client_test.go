package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL, srv.Client(), nil)
}

func TestListSessions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"sessions": []map[string]string{
				{"id": "s2", "title": "Newer"},
				{"id": "s1", "title": "Older"},
			},
		})
	})

	sessions, err := c.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s2" || sessions[1].Title != "Older" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestCreateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Title != "New Chat" {
			t.Errorf("unexpected title: %q", req.Title)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"session": map[string]string{"id": "s9", "title": req.Title},
		})
	})

	s, err := c.CreateSession(context.Background(), "New Chat")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "s9" {
		t.Errorf("unexpected session id: %q", s.ID)
	}
}

func TestRenameSession_EscapesID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	if err := c.RenameSession(context.Background(), "a/b", "Foo"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/sessions/a%2Fb" {
		t.Errorf("id not escaped: %q", gotPath)
	}
}

func TestSendMessage_ReturnsReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"sessionId"`
			Message   string `json:"message"`
			ImageURL  string `json:"imageUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.SessionID != "s1" || req.Message != "hi" || req.ImageURL != "/uploads/x.png" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "reply": "hello"})
	})

	reply, err := c.SendMessage(context.Background(), "s1", "hi", "/uploads/x.png")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hello" {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestEnvelopeFailureBecomesRequestError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "nope"})
	})

	_, err := c.ListSessions(context.Background())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	if reqErr.Op != "list sessions" {
		t.Errorf("unexpected op: %q", reqErr.Op)
	}
}

func TestHTTPStatusFailureBecomesRequestError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.SendMessage(context.Background(), "s1", "hi", "")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
}

func TestUploadImage_Multipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("pngdata"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if hdr.Filename != "photo.png" {
			t.Errorf("unexpected filename: %q", hdr.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "url": "/uploads/abc.png"})
	})

	url, err := c.UploadImage(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/abc.png" {
		t.Errorf("unexpected url: %q", url)
	}
}
