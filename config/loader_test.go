package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bosley/chatrttm/config"
)

func TestLoadFromReader_EmptyGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader returned error: %v", err)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("LogLevel=%q, want info", cfg.LogLevel)
	}
	if cfg.Serve.HTTPAddr != ":8444" || cfg.Serve.Workers != 2 {
		t.Errorf("Serve=%+v", cfg.Serve)
	}
	if !cfg.Manifest.Skip() {
		t.Error("SkipMissing should default to true")
	}
}

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: debug
paths:
  annotations: data/cha
  audio: data/wav
  rttm: data/rttm
  manifest: data/manifest.jsonl
formatter:
  shortenings: true
  final_filter: false
manifest:
  skip_missing: false
serve:
  http_addr: 127.0.0.1:9000
  workers: 4
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader returned error: %v", err)
	}
	if cfg.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("Level()=%v, want debug", cfg.LogLevel.Level())
	}
	if cfg.Paths.Manifest != "data/manifest.jsonl" {
		t.Errorf("Paths.Manifest=%q", cfg.Paths.Manifest)
	}
	if cfg.Manifest.Skip() {
		t.Error("Skip() should be false")
	}
	if cfg.Serve.Workers != 4 || cfg.Serve.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("Serve=%+v", cfg.Serve)
	}

	f := cfg.Formatter.Formatter()
	if !f.Shortenings {
		t.Error("Shortenings override not applied")
	}
	if f.FinalFilter {
		t.Error("FinalFilter override not applied")
	}
	if !f.Fillers || f.SpecialForms {
		t.Error("unset switches should keep their defaults")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("log_levle: debug\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "log_levle") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: loud
paths:
  annotations: same
  rttm: same
  manifest: out.json
serve:
  workers: -1
  cert_file: cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{
		"log_level",
		"must end with .jsonl",
		"paths.audio is required",
		"must differ",
		"serve.workers",
		"set together",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chatrttm.yaml")
	if err := os.WriteFile(path, []byte("paths:\n  annotations: cha\n  rttm: rttm\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.Annotations != "cha" || cfg.Paths.RTTM != "rttm" {
		t.Errorf("Paths=%+v", cfg.Paths)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
