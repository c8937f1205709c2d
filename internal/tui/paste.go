package tui

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// pastedImagePath decides whether a bracketed paste looks like a path to
// an image file, as terminals emit on drag and drop. It returns the
// cleaned path; existence and size are checked later by the upload path,
// which applies the same validation as the explicit /attach command.
func pastedImagePath(pasted string) (string, bool) {
	pasted = strings.TrimSpace(normalizeNewlines(pasted))
	if pasted == "" || strings.Contains(pasted, "\n") {
		return "", false
	}

	token := strings.Trim(pasted, `'"`)

	// Common terminals emit file:// URIs on drag and drop.
	if strings.HasPrefix(token, "file://") {
		u, err := url.Parse(token)
		if err != nil || u.Path == "" {
			return "", false
		}
		if decoded, err := url.PathUnescape(u.Path); err == nil {
			token = decoded
		} else {
			token = u.Path
		}
	}

	token = strings.ReplaceAll(token, `\ `, " ")

	if strings.HasPrefix(token, "~/") {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			token = filepath.Join(home, token[2:])
		}
	}

	switch strings.ToLower(filepath.Ext(token)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
	default:
		return "", false
	}

	return filepath.Clean(token), true
}

func normalizeNewlines(s string) string {
	if strings.Contains(s, "\r") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	return s
}
