package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/internal/config"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(map[string]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := config.Config{
		APIURL:      "http://127.0.0.1:8089",
		Locale:      "en-US",
		HTTPTimeout: 10 * time.Second,
		LogLevel:    "info",
		MockAddr:    "127.0.0.1:8089",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"ENTITYFORM_API_URL":      "https://admin.example.com/api",
		"ENTITYFORM_API_TOKEN":    "t0ken",
		"ENTITYFORM_LOCALE":       "ar",
		"ENTITYFORM_HTTP_TIMEOUT": "3s",
		"ENTITYFORM_LOG_LEVEL":    "debug",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.APIURL != "https://admin.example.com/api" || cfg.APIToken != "t0ken" || cfg.Locale != "ar" || cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", level)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	if _, err := config.Parse(map[string]string{"ENTITYFORM_HTTP_TIMEOUT": "soon"}); err == nil {
		t.Fatal("expected duration error")
	}
	if _, err := config.Parse(map[string]string{"ENTITYFORM_LOG_LEVEL": "loud"}); err == nil {
		t.Fatal("expected log level error")
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ENTITYFORM_LOCALE=ar\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("ENTITYFORM_LOCALE", "")
	os.Unsetenv("ENTITYFORM_LOCALE")

	cfg, err := config.Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Locale != "ar" {
		t.Fatalf("expected locale from dotenv, got %q", cfg.Locale)
	}
}
