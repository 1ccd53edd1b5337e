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

// CreatePacket persists a packet together with its items and roster in one
// transaction. Either the full set is stored or none of it; a failure half-way
// leaves no orphaned items or roster entries.
func (s *Store) CreatePacket(ctx context.Context, packet *unit.Packet, items []unit.Item, roster []unit.Assignment) error {
	if packet == nil {
		return errors.New("packet is nil")
	}
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin packet transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		now := time.Now().UTC()
		packet.CreatedAt = now
		packet.UpdatedAt = now
		if packet.Status == "" {
			packet.Status = unit.PacketActive
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO work_packets (
                id, source_ref, template_ref, style_tag_ref, task_type,
                granularity, created_by, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			packet.ID,
			packet.SourceRef,
			packet.TemplateRef,
			nullableString(packet.StyleTagRef),
			packet.TaskType,
			string(packet.Granularity),
			packet.CreatedBy,
			string(packet.Status),
			formatTime(now),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert packet: %w", err)
		}

		for i := range items {
			item := &items[i]
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO work_items (
                    packet_id, seq, source_text, target_text, status,
                    assigned_to, version, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
				packet.ID,
				item.SequenceNumber,
				item.SourceText,
				nullableString(item.TargetText),
				string(unit.StatusPending),
				item.AssignedTo,
				formatTime(now),
				formatTime(now),
			)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", item.SequenceNumber, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("item %d insert id: %w", item.SequenceNumber, err)
			}
			item.ID = id
			item.PacketID = packet.ID
			item.Status = unit.StatusPending
			item.Version = 1
			item.CreatedAt = now
			item.UpdatedAt = now
		}

		for _, entry := range roster {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO packet_roster (packet_id, translator_id, position) VALUES (?, ?, ?)`,
				packet.ID,
				entry.TranslatorID,
				entry.Position,
			); err != nil {
				return fmt.Errorf("insert roster entry %s: %w", entry.TranslatorID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit packet transaction: %w", err)
		}
		return nil
	})
}

// GetPacket fetches a packet by identifier. Returns nil when absent.
func (s *Store) GetPacket(ctx context.Context, id string) (*unit.Packet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packetColumns+` FROM work_packets WHERE id = ?`, id)
	packet, err := scanPacket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get packet: %w", err)
	}
	return packet, nil
}

// ListPackets returns packets ordered by creation time. Archived packets are
// hidden unless includeArchived is set.
func (s *Store) ListPackets(ctx context.Context, includeArchived bool) ([]*unit.Packet, error) {
	builder := sq.Select(packetColumns).From("work_packets").OrderBy("created_at", "id")
	if !includeArchived {
		builder = builder.Where(sq.NotEq{"status": string(unit.PacketArchived)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build packet query: %w", err)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list packets: %w", err)
	}
	defer rows.Close()

	var packets []*unit.Packet
	for rows.Next() {
		packet, err := scanPacket(rows)
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}
	return packets, rows.Err()
}

// UpdatePacketStatus transitions a packet's coarse status.
func (s *Store) UpdatePacketStatus(ctx context.Context, id string, status unit.PacketStatus) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_packets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update packet status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PacketProgress returns per-status item counts for one packet.
func (s *Store) PacketProgress(ctx context.Context, id string) (map[unit.Status]int, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT status, COUNT(1) FROM work_items WHERE packet_id = ? GROUP BY status`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("packet progress: %w", err)
	}
	defer rows.Close()

	progress := make(map[unit.Status]int)
	for rows.Next() {
		var status unit.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		progress[status] = count
	}
	return progress, rows.Err()
}

// Roster returns the packet's roster entries in distribution order.
func (s *Store) Roster(ctx context.Context, packetID string) ([]unit.Assignment, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT packet_id, translator_id, position FROM packet_roster WHERE packet_id = ? ORDER BY position`,
		packetID,
	)
	if err != nil {
		return nil, fmt.Errorf("packet roster: %w", err)
	}
	defer rows.Close()

	var roster []unit.Assignment
	for rows.Next() {
		var entry unit.Assignment
		if err := rows.Scan(&entry.PacketID, &entry.TranslatorID, &entry.Position); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}

// Stats returns a count of items grouped by status across all packets.
func (s *Store) Stats(ctx context.Context) (map[unit.Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[unit.Status]int)
	for rows.Next() {
		var status unit.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const packetColumns = "id, source_ref, template_ref, style_tag_ref, task_type, granularity, created_by, status, created_at, updated_at"

func scanPacket(scanner interface{ Scan(dest ...any) error }) (*unit.Packet, error) {
	var (
		id          string
		sourceRef   string
		templateRef string
		styleTag    sql.NullString
		taskType    string
		granularity string
		createdBy   string
		status      string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id,
		&sourceRef,
		&templateRef,
		&styleTag,
		&taskType,
		&granularity,
		&createdBy,
		&status,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	packet := &unit.Packet{
		ID:          id,
		SourceRef:   sourceRef,
		TemplateRef: templateRef,
		StyleTagRef: styleTag.String,
		TaskType:    taskType,
		Granularity: granularityFromString(granularity),
		CreatedBy:   createdBy,
		Status:      unit.PacketStatus(status),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		packet.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		packet.UpdatedAt = updated
	}
	return packet, nil
}
