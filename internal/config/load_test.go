package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AGEPREDICT_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.Inference.MaxRetries != 0 {
		t.Fatalf("max_retries=%d", cfg.Inference.MaxRetries)
	}
	if cfg.Inference.Paths.Voice != "/predict-audio" {
		t.Fatalf("voice path=%q", cfg.Inference.Paths.Voice)
	}
	if cfg.Sessions.TTL != 2*time.Hour || cfg.Sessions.MaxSessions != 10000 {
		t.Fatalf("sessions=%+v", cfg.Sessions)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis should be disabled by default, got %q", cfg.Redis.Addr)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := strings.Join([]string{
		"http:",
		"  addr: \":9090\"",
		"  max_upload_bytes: 1024",
		"inference:",
		"  base_url: \"http://inference:8000/\"",
		"  timeout: 5s",
		"  paths:",
		"    text: /v2/text",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("AGEPREDICT_HTTP_ADDR", ":7070")
	t.Setenv("AGEPREDICT_INFERENCE_MAX_RETRIES", "2")
	t.Setenv("AGEPREDICT_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env should override file, addr=%q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.MaxUploadBytes != 1024 {
		t.Fatalf("max_upload_bytes=%d", cfg.HTTP.MaxUploadBytes)
	}
	if cfg.Inference.BaseURL != "http://inference:8000" {
		t.Fatalf("base_url=%q", cfg.Inference.BaseURL)
	}
	if cfg.Inference.Timeout != 5*time.Second {
		t.Fatalf("timeout=%s", cfg.Inference.Timeout)
	}
	if cfg.Inference.Paths.Text != "/v2/text" || cfg.Inference.Paths.Image != "/predict-image" {
		t.Fatalf("paths=%+v", cfg.Inference.Paths)
	}
	if cfg.Inference.MaxRetries != 2 {
		t.Fatalf("max_retries=%d", cfg.Inference.MaxRetries)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors=%q", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	cases := map[string]string{
		"AGEPREDICT_INFERENCE_BASE_URL":    " ",
		"AGEPREDICT_INFERENCE_PATHS_IRIS":  "predict-iris",
		"AGEPREDICT_INFERENCE_MAX_RETRIES": "-1",
		"AGEPREDICT_SESSIONS_MAX_SESSIONS": "0",
		"AGEPREDICT_HTTP_MAX_UPLOAD_BYTES": "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadFile(""); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
