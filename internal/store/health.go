package store

import (
	"context"
	"fmt"
	"os"

	"loom/internal/unit"
)

// Health describes the state of the database for diagnostics.
type Health struct {
	Path        string
	SizeBytes   int64
	JournalMode string
	Integrity   string
	Packets     int
	Units       map[unit.Status]int
}

// Healthy reports whether the integrity check passed.
func (h Health) Healthy() bool {
	return h.Integrity == "ok"
}

// CheckHealth runs SQLite's quick integrity check and gathers counts.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{Path: s.path}

	if info, err := os.Stat(s.path); err == nil {
		health.SizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&health.JournalMode); err != nil {
		return health, fmt.Errorf("journal mode: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&health.Integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_packets").Scan(&health.Packets); err != nil {
		return health, fmt.Errorf("count packets: %w", err)
	}
	units, err := s.Stats(ctx)
	if err != nil {
		return health, err
	}
	health.Units = units
	return health, nil
}
