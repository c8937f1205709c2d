// Package api implements the HTTP client for the chat backend. The core
// treats every failure the same way: transport errors, non-2xx statuses
// and success=false envelopes all come back as *RequestError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// RequestError is the single failure category the client reports. Op names
// the backend operation ("list sessions", "send message", ...) so callers
// can pick an error surface without inspecting status codes.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, log *zap.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: defaultTimeout}, log)
}

// NewWithHTTPClient creates a client with a caller-supplied *http.Client,
// mainly for tests against httptest servers.
func NewWithHTTPClient(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListSessions returns the server's sessions, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil)
	if err != nil {
		return nil, &RequestError{Op: "list sessions", Err: err}
	}
	return env.Sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, title string) (Session, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/sessions", createSessionRequest{Title: title})
	if err != nil {
		return Session{}, &RequestError{Op: "create session", Err: err}
	}
	if env.Session == nil {
		return Session{}, &RequestError{Op: "create session", Err: fmt.Errorf("response missing session")}
	}
	return *env.Session, nil
}

func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	path := "/api/sessions/" + url.PathEscape(id)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, renameSessionRequest{Title: title}); err != nil {
		return &RequestError{Op: "rename session", Err: err}
	}
	return nil
}

func (c *Client) LoadMessages(ctx context.Context, id string) ([]Message, error) {
	path := "/api/sessions/" + url.PathEscape(id) + "/messages"
	env, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &RequestError{Op: "load messages", Err: err}
	}
	return env.Messages, nil
}

// SendMessage delivers one user turn and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, text, imageURL string) (string, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/chat", chatRequest{
		SessionID: sessionID,
		Message:   text,
		ImageURL:  imageURL,
	})
	if err != nil {
		return "", &RequestError{Op: "send message", Err: err}
	}
	return env.Reply, nil
}

// UploadImage posts the file at path as multipart form field "file" and
// returns the reference URL the server assigned.
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return "", &RequestError{Op: "upload image", Err: err}
	}
	return env.URL, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(data))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return &env, nil
}

func truncateBody(data []byte) string {
	const limit = 200
	s := string(data)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
