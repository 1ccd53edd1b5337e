// Package export implements the dataset extraction gate: only approved units
// leave the system, filtered and projected for downstream training corpora.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"loom/internal/engine"
	"loom/internal/identity"
	"loom/internal/store"
)

// Record is the exported projection of one approved unit. Field names follow
// the dataset convention consumed downstream.
type Record struct {
	PacketID       string    `json:"packetId"`
	TaskType       string    `json:"taskType"`
	TranslatorID   string    `json:"translatorId"`
	SequenceNumber int       `json:"sequenceNumber"`
	SourceText     string    `json:"sourceText"`
	TargetText     string    `json:"targetText"`
	QualityScore   int       `json:"qualityScore"`
	ReviewedAt     time.Time `json:"reviewedAt"`
}

// Filter narrows the export; zero values mean "no filter". The date range is
// inclusive and applies to the review timestamp.
type Filter struct {
	TranslatorID string
	TaskType     string
	From         *time.Time
	To           *time.Time
}

// Gate mediates dataset extraction. It enforces the export authorization and
// never emits a unit that is not approved at query time.
type Gate struct {
	store *store.Store
}

// NewGate builds a Gate over the store.
func NewGate(st *store.Store) *Gate {
	return &Gate{store: st}
}

// Approved returns the matching approved units, most recently reviewed first.
func (g *Gate) Approved(ctx context.Context, filter Filter, actor identity.Actor) ([]Record, error) {
	if !actor.Can(identity.ActionExport) {
		return nil, engine.Wrap(engine.ErrUnauthorized, "export", fmt.Sprintf("role %q cannot export", actor.Role), nil)
	}
	rows, err := g.store.ApprovedRows(ctx, store.ExportFilter{
		TranslatorID: filter.TranslatorID,
		TaskType:     filter.TaskType,
		From:         filter.From,
		To:           filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("export approved units: %w", err)
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{
			PacketID:       row.PacketID,
			TaskType:       row.TaskType,
			TranslatorID:   row.TranslatorID,
			SequenceNumber: row.SequenceNumber,
			SourceText:     row.SourceText,
			TargetText:     row.TargetText,
			QualityScore:   row.QualityScore,
			ReviewedAt:     row.ReviewedAt,
		}
	}
	return records, nil
}

// Format selects the dataset encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format string.
func ParseFormat(raw string) (Format, bool) {
	switch Format(raw) {
	case FormatJSONL, FormatCSV:
		return Format(raw), true
	}
	return "", false
}

// Write encodes records to w in the requested format.
func Write(w io.Writer, records []Record, format Format) error {
	switch format {
	case FormatJSONL:
		return writeJSONL(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSONL(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{
	"packet_id", "task_type", "translator_id", "sequence_number",
	"source_text", "target_text", "quality_score", "reviewed_at",
}

func writeCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		row := []string{
			record.PacketID,
			record.TaskType,
			record.TranslatorID,
			strconv.Itoa(record.SequenceNumber),
			record.SourceText,
			record.TargetText,
			strconv.Itoa(record.QualityScore),
			record.ReviewedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
