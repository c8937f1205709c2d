package backend

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, url string, payload any) map[string]any {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil).Handler())
	defer srv.Close()

	created := postJSON(t, srv.URL+"/api/sessions", map[string]string{"title": "First"})
	if created["success"] != true {
		t.Fatalf("create failed: %v", created)
	}
	id := created["session"].(map[string]any)["id"].(string)

	// Second session should list before the first.
	postJSON(t, srv.URL+"/api/sessions", map[string]string{"title": "Second"})
	listed := getJSON(t, srv.URL+"/api/sessions")
	sessions := listed["sessions"].([]any)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].(map[string]any)["title"] != "Second" {
		t.Error("sessions not most-recent-first")
	}

	// Rename, then verify through the list.
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/sessions/"+id, strings.NewReader(`{"title":"Renamed"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	listed = getJSON(t, srv.URL+"/api/sessions")
	found := false
	for _, raw := range listed["sessions"].([]any) {
		sess := raw.(map[string]any)
		if sess["id"] == id && sess["title"] == "Renamed" {
			found = true
		}
	}
	if !found {
		t.Error("rename not reflected in session list")
	}
}

func TestChatAppendsBothTurns(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil).Handler())
	defer srv.Close()

	created := postJSON(t, srv.URL+"/api/sessions", map[string]string{"title": "New Chat"})
	id := created["session"].(map[string]any)["id"].(string)

	sent := postJSON(t, srv.URL+"/api/chat", map[string]string{"sessionId": id, "message": "hello"})
	if sent["success"] != true {
		t.Fatalf("chat failed: %v", sent)
	}
	if !strings.Contains(sent["reply"].(string), "hello") {
		t.Errorf("echo reply missing input: %v", sent["reply"])
	}

	msgs := getJSON(t, srv.URL+"/api/sessions/"+id+"/messages")["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].(map[string]any)["role"] != "user" || msgs[1].(map[string]any)["role"] != "assistant" {
		t.Errorf("unexpected roles: %v", msgs)
	}
}

func TestChatUnknownSession(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil).Handler())
	defer srv.Close()

	out := postJSON(t, srv.URL+"/api/chat", map[string]string{"sessionId": "nope", "message": "hi"})
	if out["success"] != false {
		t.Errorf("expected failure envelope, got %v", out)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil).Handler())
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "pic.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("imagebytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["success"] != true {
		t.Fatalf("upload failed: %v", out)
	}
	url := out["url"].(string)
	if !strings.HasPrefix(url, "/uploads/") {
		t.Fatalf("unexpected url: %q", url)
	}

	got, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("uploaded file not served: status %d", got.StatusCode)
	}
}
