package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "WORKER_COUNT", "EXTRACT_WORKERS", "SECTION_BOLD_PARAGRAPHS", "JOB_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.WorkerCount)
	}
	if cfg.ExtractWorkers <= 0 {
		t.Errorf("expected positive extract workers, got %d", cfg.ExtractWorkers)
	}
	if !cfg.SectionBoldParagraphs || !cfg.SectionColonParagraphs {
		t.Error("expected paragraph heuristics enabled by default")
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h job ttl, got %s", cfg.JobTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("SECTION_COLON_PARAGRAPHS", "false")
	t.Setenv("JOB_TTL", "90s")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected non-positive worker count to reset to 4, got %d", cfg.WorkerCount)
	}
	if cfg.SectionColonParagraphs {
		t.Error("expected colon heuristic disabled")
	}
	if cfg.JobTTL != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.JobTTL)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected fallback upload limit, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	env := "DOCGRAPH_API_KEY=from-file\nRESULT_CACHE_SIZE=42\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("DOCGRAPH_API_KEY", "from-env")
	t.Setenv("RESULT_CACHE_SIZE", "")
	os.Unsetenv("RESULT_CACHE_SIZE")

	cfg := Load()
	if cfg.DocgraphAPIKey != "from-env" {
		t.Errorf("expected environment to win, got %q", cfg.DocgraphAPIKey)
	}
	if cfg.ResultCacheSize != 42 {
		t.Errorf("expected cache size from .env, got %d", cfg.ResultCacheSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing pathstore key", Config{DocgraphAPIKey: "x"}, true},
		{"missing api key", Config{PathstoreAPIKey: "x"}, true},
		{"ok", Config{PathstoreAPIKey: "x", DocgraphAPIKey: "y"}, false},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: err=%v, wantErr=%v", tt.name, err, tt.wantErr)
		}
	}
}
