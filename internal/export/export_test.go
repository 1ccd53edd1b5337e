package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"loom/internal/engine"
	"loom/internal/export"
	"loom/internal/identity"
	"loom/internal/segment"
	"loom/internal/testsupport"
)

var (
	admin      = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	translator = identity.Actor{ID: "T1", Role: identity.RoleTranslator}
	reviewer   = identity.Actor{ID: "R1", Role: identity.RoleReviewer}
)

// seedApproved creates one packet, submits both units, approves the first and
// rejects the second, and returns the gate.
func seedApproved(t *testing.T) (*export.Gate, *engine.Engine) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	eng := engine.New(st, cfg, nil)
	ctx := context.Background()

	_, items, err := eng.CreatePacket(ctx, engine.CreatePacketRequest{
		SourceRef:     "doc-1",
		SourceText:    "The first sentence is long enough. The second sentence is long enough.",
		TemplateRef:   "tpl-1",
		TaskType:      "translation",
		Granularity:   segment.GranularitySentence,
		TranslatorIDs: []string{"T1"},
	}, admin)
	if err != nil {
		t.Fatalf("CreatePacket failed: %v", err)
	}
	for _, item := range items {
		if _, err := eng.Submit(ctx, item.ID, "translated text", translator); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if _, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{
		Decision: engine.DecisionApprove,
		Checked:  eng.Checklist(),
	}, reviewer); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := eng.Review(ctx, items[1].ID, engine.ReviewRequest{
		Decision: engine.DecisionReject,
		Reason:   "terminology drift",
	}, reviewer); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	return export.NewGate(eng.Store()), eng
}

func TestApprovedOnly(t *testing.T) {
	gate, _ := seedApproved(t)
	records, err := gate.Approved(context.Background(), export.Filter{}, admin)
	if err != nil {
		t.Fatalf("Approved failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one approved record, got %d", len(records))
	}
	record := records[0]
	if record.TranslatorID != "T1" || record.QualityScore != 5 || record.TargetText != "translated text" {
		t.Fatalf("unexpected record: %#v", record)
	}
	if record.ReviewedAt.IsZero() {
		t.Fatal("expected review timestamp on exported record")
	}
}

func TestExportAuthorization(t *testing.T) {
	gate, _ := seedApproved(t)
	ctx := context.Background()

	if _, err := gate.Approved(ctx, export.Filter{}, translator); !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error for translator, got %v", err)
	}
	if _, err := gate.Approved(ctx, export.Filter{}, reviewer); err != nil {
		t.Fatalf("reviewer export failed: %v", err)
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	gate, _ := seedApproved(t)
	ctx := context.Background()

	records, err := gate.Approved(ctx, export.Filter{TranslatorID: "T1", TaskType: "translation"}, admin)
	if err != nil {
		t.Fatalf("Approved failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record with matching filters, got %d", len(records))
	}

	records, err = gate.Approved(ctx, export.Filter{TranslatorID: "T1", TaskType: "annotation"}, admin)
	if err != nil {
		t.Fatalf("Approved failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records when one filter misses, got %d", len(records))
	}

	past := time.Now().UTC().Add(-time.Hour)
	records, err = gate.Approved(ctx, export.Filter{To: &past}, admin)
	if err != nil {
		t.Fatalf("Approved failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records reviewed before the window, got %d", len(records))
	}
}

func TestParseFormat(t *testing.T) {
	if _, ok := export.ParseFormat("jsonl"); !ok {
		t.Fatal("jsonl should parse")
	}
	if _, ok := export.ParseFormat("csv"); !ok {
		t.Fatal("csv should parse")
	}
	if _, ok := export.ParseFormat("parquet"); ok {
		t.Fatal("parquet should not parse")
	}
}

func sampleRecords() []export.Record {
	reviewed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []export.Record{
		{
			PacketID:       "p-1",
			TaskType:       "translation",
			TranslatorID:   "T1",
			SequenceNumber: 1,
			SourceText:     "source one",
			TargetText:     "target one",
			QualityScore:   5,
			ReviewedAt:     reviewed,
		},
		{
			PacketID:       "p-1",
			TaskType:       "translation",
			TranslatorID:   "T2",
			SequenceNumber: 2,
			SourceText:     "source, with comma",
			TargetText:     "target two",
			QualityScore:   4,
			ReviewedAt:     reviewed,
		},
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Write(&buf, sampleRecords(), export.FormatJSONL); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSONL lines, got %d", len(lines))
	}
	var first export.Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first.TranslatorID != "T1" || first.QualityScore != 5 {
		t.Fatalf("unexpected first record: %#v", first)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Write(&buf, sampleRecords(), export.FormatCSV); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV output is not parseable: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
	if rows[0][0] != "packet_id" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[2][4] != "source, with comma" {
		t.Fatalf("expected quoted comma field to survive, got %q", rows[2][4])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := export.Write(&bytes.Buffer{}, nil, export.Format("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
