package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"loom/internal/unit"
)

// ExportFilter narrows the approved-unit export. Zero values mean "no filter".
// The date range is inclusive on both ends and applies to the review time.
type ExportFilter struct {
	TranslatorID string
	TaskType     string
	From         *time.Time
	To           *time.Time
}

// ExportRow is the projection of one approved unit for dataset extraction.
type ExportRow struct {
	PacketID       string
	TaskType       string
	TranslatorID   string
	SequenceNumber int
	SourceText     string
	TargetText     string
	QualityScore   int
	ReviewedAt     time.Time
}

// ApprovedRows returns every unit whose status is approved at query time,
// filtered and ordered by review time descending. Units in any other status
// never appear, regardless of filters.
func (s *Store) ApprovedRows(ctx context.Context, filter ExportFilter) ([]ExportRow, error) {
	builder := sq.Select(
		"i.packet_id",
		"p.task_type",
		"i.assigned_to",
		"i.seq",
		"i.source_text",
		"i.target_text",
		"i.quality_score",
		"i.reviewed_at",
	).
		From("work_items i").
		Join("work_packets p ON p.id = i.packet_id").
		Where(sq.Eq{"i.status": string(unit.StatusApproved)}).
		OrderBy("i.reviewed_at DESC", "i.id DESC")

	if filter.TranslatorID != "" {
		builder = builder.Where(sq.Eq{"i.assigned_to": filter.TranslatorID})
	}
	if filter.TaskType != "" {
		builder = builder.Where(sq.Eq{"p.task_type": filter.TaskType})
	}
	if filter.From != nil {
		builder = builder.Where(sq.GtOrEq{"i.reviewed_at": formatTime(*filter.From)})
	}
	if filter.To != nil {
		builder = builder.Where(sq.LtOrEq{"i.reviewed_at": formatTime(*filter.To)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build export query: %w", err)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query approved rows: %w", err)
	}
	defer rows.Close()

	var result []ExportRow
	for rows.Next() {
		var (
			row         ExportRow
			reviewedRaw string
		)
		if err := rows.Scan(
			&row.PacketID,
			&row.TaskType,
			&row.TranslatorID,
			&row.SequenceNumber,
			&row.SourceText,
			&row.TargetText,
			&row.QualityScore,
			&reviewedRaw,
		); err != nil {
			return nil, err
		}
		if reviewed, err := parseTimeString(reviewedRaw); err == nil {
			row.ReviewedAt = reviewed
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
