package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithChecklist overrides the QA checklist on the test config.
func WithChecklist(items ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Review.Checklist = items
	}
}

// WithSentenceMinChars overrides the sentence length threshold.
func WithSentenceMinChars(min int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Segmenter.SentenceMinChars = min
	}
}
