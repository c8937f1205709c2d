package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MaxAttachmentBytes caps attachment uploads at 5 MiB.
const MaxAttachmentBytes = 5 * 1024 * 1024

var (
	// ErrInvalidType means the file is not an image.
	ErrInvalidType = errors.New("attachment is not an image")
	// ErrTooLarge means the file exceeds MaxAttachmentBytes.
	ErrTooLarge = errors.New("attachment exceeds 5 MiB")
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// AttachmentHandler stages at most one uploaded image for the next
// outgoing message. Both attachment entry points (explicit pick and paste)
// converge on Upload, so validation is identical for both.
type AttachmentHandler struct {
	backend Backend
	log     *zap.Logger

	mu      sync.Mutex
	pending string
}

func NewAttachmentHandler(backend Backend, log *zap.Logger) *AttachmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttachmentHandler{backend: backend, log: log}
}

// Validate checks the declared type and size without touching the network.
func Validate(name string, size int64) error {
	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		return ErrInvalidType
	}
	if size > MaxAttachmentBytes {
		return ErrTooLarge
	}
	return nil
}

// Upload validates the file at path and, if it passes, uploads it and
// stages the returned URL as the pending attachment. A later successful
// upload supersedes an earlier one; any failure leaves the previously
// staged attachment untouched.
func (a *AttachmentHandler) Upload(ctx context.Context, path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", ErrInvalidType
	}
	if err := Validate(path, st.Size()); err != nil {
		return "", err
	}

	url, err := a.backend.UploadImage(ctx, path)
	if err != nil {
		a.log.Warn("upload failed", zap.String("path", path), zap.Error(err))
		return "", err
	}

	a.mu.Lock()
	a.pending = url
	a.mu.Unlock()
	a.log.Info("attachment staged", zap.String("url", url))
	return url, nil
}

// Pending peeks at the staged attachment URL, if any.
func (a *AttachmentHandler) Pending() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Take consumes the staged attachment. Consumption is one-shot: once a
// send has taken the URL it never returns to pending, whatever the send's
// outcome.
func (a *AttachmentHandler) Take() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	url := a.pending
	a.pending = ""
	return url
}

// Discard drops the staged attachment without sending it.
func (a *AttachmentHandler) Discard() {
	a.mu.Lock()
	a.pending = ""
	a.mu.Unlock()
}
