package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS work_packets (
        id TEXT PRIMARY KEY,
        source_ref TEXT NOT NULL,
        template_ref TEXT NOT NULL,
        style_tag_ref TEXT,
        task_type TEXT NOT NULL,
        granularity TEXT NOT NULL,
        created_by TEXT NOT NULL,
        status TEXT NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS work_items (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        packet_id TEXT NOT NULL REFERENCES work_packets(id) ON DELETE CASCADE,
        seq INTEGER NOT NULL,
        source_text TEXT NOT NULL,
        target_text TEXT,
        status TEXT NOT NULL,
        assigned_to TEXT NOT NULL,
        reviewed_by TEXT,
        rejection_reason TEXT,
        quality_score INTEGER,
        version INTEGER NOT NULL DEFAULT 1,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        submitted_at TEXT,
        reviewed_at TEXT,
        UNIQUE (packet_id, seq)
    )`,
	`CREATE TABLE IF NOT EXISTS packet_roster (
        packet_id TEXT NOT NULL REFERENCES work_packets(id) ON DELETE CASCADE,
        translator_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        PRIMARY KEY (packet_id, translator_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_status ON work_items (status)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_assigned ON work_items (assigned_to, status)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_review_queue ON work_items (status, submitted_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_reviewed_at ON work_items (status, reviewed_at)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
