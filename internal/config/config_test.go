package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %q", cfg.BaseURL)
	}
	if cfg.Theme != "midnight" {
		t.Errorf("expected default theme, got %q", cfg.Theme)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("base_url: https://chat.example.com\nusername: ana\ndebug: true\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://chat.example.com" {
		t.Errorf("base_url not loaded: %q", cfg.BaseURL)
	}
	if cfg.Username != "ana" {
		t.Errorf("username not loaded: %q", cfg.Username)
	}
	if !cfg.Debug {
		t.Error("debug not loaded")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("base_url: https://file.example.com\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIGCHAT_BASE_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("env override not applied: %q", cfg.BaseURL)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	in := Config{BaseURL: "https://x.example.com", Theme: "porcelain", Username: "bo"}
	if err := Save(in, path); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.BaseURL != in.BaseURL || out.Theme != in.Theme || out.Username != in.Username {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}
