package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"loom/internal/unit"
)

// GetItem fetches a work item by identifier. Returns nil when absent.
func (s *Store) GetItem(ctx context.Context, id int64) (*unit.Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ItemsForTranslator returns a translator's units in the given statuses,
// ordered by packet then sequence number.
func (s *Store) ItemsForTranslator(ctx context.Context, translatorID string, statuses ...unit.Status) ([]*unit.Item, error) {
	builder := sq.Select(itemColumns).
		From("work_items").
		Where(sq.Eq{"assigned_to": translatorID}).
		OrderBy("packet_id", "seq")
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		builder = builder.Where(sq.Eq{"status": values})
	}
	return s.queryItems(ctx, builder)
}

// ItemsForPacket returns every unit of a packet in sequence order.
func (s *Store) ItemsForPacket(ctx context.Context, packetID string) ([]*unit.Item, error) {
	builder := sq.Select(itemColumns).
		From("work_items").
		Where(sq.Eq{"packet_id": packetID}).
		OrderBy("seq")
	return s.queryItems(ctx, builder)
}

// ReviewQueue returns all in_qa units, oldest submission first. Submission
// ties fall back to insertion order so the queue is stable.
func (s *Store) ReviewQueue(ctx context.Context) ([]*unit.Item, error) {
	builder := sq.Select(itemColumns).
		From("work_items").
		Where(sq.Eq{"status": string(unit.StatusInQA)}).
		OrderBy("submitted_at", "id")
	return s.queryItems(ctx, builder)
}

func (s *Store) queryItems(ctx context.Context, builder sq.SelectBuilder) ([]*unit.Item, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*unit.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItemVersioned persists item changes only when the stored version still
// matches expectedVersion, incrementing it in the same statement. It reports
// false when another writer got there first.
func (s *Store) UpdateItemVersioned(ctx context.Context, item *unit.Item, expectedVersion int64) (bool, error) {
	if item == nil {
		return false, errors.New("item is nil")
	}
	now := time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET target_text = ?, status = ?, reviewed_by = ?, rejection_reason = ?,
             quality_score = ?, version = version + 1, updated_at = ?,
             submitted_at = ?, reviewed_at = ?
         WHERE id = ? AND version = ?`,
		nullableString(item.TargetText),
		string(item.Status),
		nullableString(item.ReviewedBy),
		nullableString(item.RejectionReason),
		nullableInt(item.QualityScore),
		formatTime(now),
		nullableTime(item.SubmittedAt),
		nullableTime(item.ReviewedAt),
		item.ID,
		expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	item.Version = expectedVersion + 1
	item.UpdatedAt = now
	return true, nil
}

const itemColumns = "id, packet_id, seq, source_text, target_text, status, assigned_to, reviewed_by, rejection_reason, quality_score, version, created_at, updated_at, submitted_at, reviewed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*unit.Item, error) {
	var (
		id           int64
		packetID     string
		seq          int
		sourceText   string
		targetText   sql.NullString
		statusStr    string
		assignedTo   string
		reviewedBy   sql.NullString
		reason       sql.NullString
		score        sql.NullInt64
		version      int64
		createdRaw   string
		updatedRaw   string
		submittedRaw sql.NullString
		reviewedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&packetID,
		&seq,
		&sourceText,
		&targetText,
		&statusStr,
		&assignedTo,
		&reviewedBy,
		&reason,
		&score,
		&version,
		&createdRaw,
		&updatedRaw,
		&submittedRaw,
		&reviewedRaw,
	); err != nil {
		return nil, err
	}

	item := &unit.Item{
		ID:              id,
		PacketID:        packetID,
		SequenceNumber:  seq,
		SourceText:      sourceText,
		TargetText:      targetText.String,
		Status:          unit.Status(statusStr),
		AssignedTo:      assignedTo,
		ReviewedBy:      reviewedBy.String,
		RejectionReason: reason.String,
		QualityScore:    int(score.Int64),
		Version:         version,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if submittedRaw.Valid {
		if submitted, err := parseTimeString(submittedRaw.String); err == nil {
			item.SubmittedAt = &submitted
		}
	}
	if reviewedRaw.Valid {
		if reviewed, err := parseTimeString(reviewedRaw.String); err == nil {
			item.ReviewedAt = &reviewed
		}
	}
	return item, nil
}
