package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := (&cfg).Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Segmenter.ParagraphMinChars != 20 {
		t.Fatalf("expected default paragraph minimum, got %d", cfg.Segmenter.ParagraphMinChars)
	}
	if len(cfg.Review.Checklist) != 4 {
		t.Fatalf("expected default checklist, got %v", cfg.Review.Checklist)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = " 127.0.0.1:9000 "

[segmenter]
sentence_min_chars = 5

[review]
checklist = ["accuracy", " fluency ", ""]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:9000" {
		t.Fatalf("expected trimmed bind, got %q", cfg.Paths.APIBind)
	}
	if cfg.Segmenter.SentenceMinChars != 5 {
		t.Fatalf("expected sentence minimum 5, got %d", cfg.Segmenter.SentenceMinChars)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	want := []string{"accuracy", "fluency"}
	if len(cfg.Review.Checklist) != len(want) {
		t.Fatalf("expected checklist %v, got %v", want, cfg.Review.Checklist)
	}
	for i, item := range want {
		if cfg.Review.Checklist[i] != item {
			t.Fatalf("expected checklist %v, got %v", want, cfg.Review.Checklist)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }, "data_dir"},
		{"zero sentence minimum", func(c *config.Config) { c.Segmenter.SentenceMinChars = 0 }, "sentence_min_chars"},
		{"empty checklist", func(c *config.Config) { c.Review.Checklist = nil }, "checklist"},
		{"duplicate checklist item", func(c *config.Config) { c.Review.Checklist = []string{"accuracy", "accuracy"} }, "duplicated"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := (&cfg).Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("LOOM_API_TOKEN", "secret-token")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.APIToken != "secret-token" {
		t.Fatalf("expected env token override, got %q", cfg.Paths.APIToken)
	}
}
