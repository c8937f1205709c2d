package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func createImageFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
	}{
		{"png ok", "a.png", 1024, nil},
		{"jpeg ok", "photo.JPEG", 1024, nil},
		{"at limit", "a.png", MaxAttachmentBytes, nil},
		{"too large", "a.png", 6 * 1024 * 1024, ErrTooLarge},
		{"not an image", "notes.txt", 10, ErrInvalidType},
		{"no extension", "README", 10, ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q, %d) = %v, want %v", tt.file, tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestUpload_ValidationFailureMakesNoNetworkCall(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	big := filepath.Join(t.TempDir(), "big.png")
	if err := os.WriteFile(big, make([]byte, 6*1024*1024), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := a.Upload(context.Background(), big)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("validation must reject before any request, got calls %v", backend.calls)
	}

	text := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(text, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Upload(context.Background(), text); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("validation must reject before any request, got calls %v", backend.calls)
	}
}

func TestUpload_StagesPendingURL(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	url, err := a.Upload(context.Background(), createImageFile(t, 64))
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/mock.png" || a.Pending() != url {
		t.Errorf("pending = %q, want %q", a.Pending(), url)
	}
}

func TestUpload_SecondUploadSupersedesFirst(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err != nil {
		t.Fatal(err)
	}
	backend.uploadURL = "/uploads/second.png"
	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err != nil {
		t.Fatal(err)
	}
	if a.Pending() != "/uploads/second.png" {
		t.Errorf("second upload did not supersede: %q", a.Pending())
	}
}

func TestUpload_FailureKeepsPreviousPending(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err != nil {
		t.Fatal(err)
	}
	backend.uploadErr = errors.New("upload exploded")
	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err == nil {
		t.Fatal("expected upload error")
	}
	if a.Pending() != "/uploads/mock.png" {
		t.Errorf("failed upload clobbered pending attachment: %q", a.Pending())
	}
}

func TestTake_IsOneShot(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err != nil {
		t.Fatal(err)
	}
	if got := a.Take(); got != "/uploads/mock.png" {
		t.Errorf("Take = %q", got)
	}
	if got := a.Take(); got != "" {
		t.Errorf("second Take = %q, want empty", got)
	}
}

func TestDiscard(t *testing.T) {
	backend := newFakeBackend()
	a := NewAttachmentHandler(backend, nil)

	if _, err := a.Upload(context.Background(), createImageFile(t, 64)); err != nil {
		t.Fatal(err)
	}
	a.Discard()
	if a.Pending() != "" {
		t.Error("Discard left a pending attachment")
	}
}
