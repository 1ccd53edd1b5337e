package engine_test

import (
	"context"
	"errors"
	"testing"

	"loom/internal/engine"
	"loom/internal/identity"
	"loom/internal/segment"
	"loom/internal/testsupport"
	"loom/internal/unit"
)

var (
	admin       = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	translator  = identity.Actor{ID: "T1", Role: identity.RoleTranslator}
	translator2 = identity.Actor{ID: "T2", Role: identity.RoleTranslator}
	reviewer    = identity.Actor{ID: "R1", Role: identity.RoleReviewer}
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return engine.New(st, cfg, nil)
}

func createPacket(t *testing.T, eng *engine.Engine, text string, roster []string) (*unit.Packet, []unit.Item) {
	t.Helper()
	packet, items, err := eng.CreatePacket(context.Background(), engine.CreatePacketRequest{
		SourceRef:     "doc-1",
		SourceText:    text,
		TemplateRef:   "tpl-1",
		TaskType:      "translation",
		Granularity:   segment.GranularitySentence,
		TranslatorIDs: roster,
	}, admin)
	if err != nil {
		t.Fatalf("CreatePacket failed: %v", err)
	}
	return packet, items
}

const fiveSentences = "This is the first sentence. Here comes the second one. " +
	"The third sentence arrives. Sentence number four follows. The fifth closes the set."

func TestCreatePacketDistributesRoundRobin(t *testing.T) {
	eng := newEngine(t)
	packet, items := createPacket(t, eng, fiveSentences, []string{"T1", "T2"})

	if len(items) != 5 {
		t.Fatalf("expected five units, got %d", len(items))
	}
	wantAssignees := []string{"T1", "T2", "T1", "T2", "T1"}
	for i, item := range items {
		if item.AssignedTo != wantAssignees[i] {
			t.Fatalf("unit %d: expected %s, got %s", i, wantAssignees[i], item.AssignedTo)
		}
		if item.SequenceNumber != i+1 {
			t.Fatalf("unit %d: expected sequence %d, got %d", i, i+1, item.SequenceNumber)
		}
		if item.Status != unit.StatusPending {
			t.Fatalf("unit %d: expected pending, got %s", i, item.Status)
		}
	}

	roster, err := eng.Store().Roster(context.Background(), packet.ID)
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected two roster entries, got %d", len(roster))
	}
}

func TestCreatePacketValidation(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  engine.CreatePacketRequest
	}{
		{"missing source ref", engine.CreatePacketRequest{
			SourceText: fiveSentences, TemplateRef: "tpl-1",
			Granularity: segment.GranularitySentence, TranslatorIDs: []string{"T1"},
		}},
		{"missing template ref", engine.CreatePacketRequest{
			SourceRef: "doc-1", SourceText: fiveSentences,
			Granularity: segment.GranularitySentence, TranslatorIDs: []string{"T1"},
		}},
		{"empty roster", engine.CreatePacketRequest{
			SourceRef: "doc-1", SourceText: fiveSentences, TemplateRef: "tpl-1",
			Granularity: segment.GranularitySentence,
		}},
		{"zero fragments", engine.CreatePacketRequest{
			SourceRef: "doc-1", SourceText: "Tiny.", TemplateRef: "tpl-1",
			Granularity: segment.GranularitySentence, TranslatorIDs: []string{"T1"},
		}},
		{"bad granularity", engine.CreatePacketRequest{
			SourceRef: "doc-1", SourceText: fiveSentences, TemplateRef: "tpl-1",
			Granularity: "word", TranslatorIDs: []string{"T1"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := eng.CreatePacket(ctx, tc.req, admin)
			if !errors.Is(err, engine.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// Failed creations must leave nothing behind.
	stats, err := eng.Store().Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no persisted items after failures, got %v", stats)
	}
	packets, err := eng.Store().ListPackets(ctx, true)
	if err != nil {
		t.Fatalf("ListPackets failed: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("expected no persisted packets after failures, got %d", len(packets))
	}
}

func TestCreatePacketRequiresAdminRole(t *testing.T) {
	eng := newEngine(t)
	_, _, err := eng.CreatePacket(context.Background(), engine.CreatePacketRequest{
		SourceRef: "doc-1", SourceText: fiveSentences, TemplateRef: "tpl-1",
		Granularity: segment.GranularitySentence, TranslatorIDs: []string{"T1"},
	}, translator)
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestSaveDraftGuards(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	_, items := createPacket(t, eng, fiveSentences, []string{"T1", "T2"})

	saved, err := eng.SaveDraft(ctx, items[0].ID, "draft text", translator)
	if err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if saved.TargetText != "draft text" || saved.Status != unit.StatusPending {
		t.Fatalf("unexpected draft state: %#v", saved)
	}

	if _, err := eng.SaveDraft(ctx, items[0].ID, "stolen", translator2); !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error for foreign unit, got %v", err)
	}
	if _, err := eng.SaveDraft(ctx, items[0].ID, "sneaky", reviewer); !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error for reviewer draft, got %v", err)
	}

	if _, err := eng.Submit(ctx, items[0].ID, "", translator); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := eng.SaveDraft(ctx, items[0].ID, "too late", translator); !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for in_qa draft, got %v", err)
	}
}

func TestSubmitGuards(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	_, items := createPacket(t, eng, fiveSentences, []string{"T1", "T2"})

	if _, err := eng.Submit(ctx, items[0].ID, "   ", translator); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for empty target, got %v", err)
	}
	if _, err := eng.Submit(ctx, items[0].ID, "done", translator2); !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error for foreign submit, got %v", err)
	}

	submitted, err := eng.Submit(ctx, items[0].ID, "translated text", translator)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Status != unit.StatusInQA {
		t.Fatalf("expected in_qa, got %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Fatal("expected submittedAt to be set")
	}

	if _, err := eng.Submit(ctx, items[0].ID, "again", translator); !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for double submit, got %v", err)
	}
}

func TestSubmitNotFound(t *testing.T) {
	eng := newEngine(t)
	if _, err := eng.Submit(context.Background(), 9999, "text", translator); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestApproveDerivesQualityScore(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	_, items := createPacket(t, eng, fiveSentences, []string{"T1"})

	if _, err := eng.Submit(ctx, items[0].ID, "translated", translator); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Three of four default checklist items pass: round(0.75 * 5) = 4.
	approved, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{
		Decision: engine.DecisionApprove,
		Checked:  []string{"accuracy", "meaning preservation", "fluency"},
	}, reviewer)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if approved.Status != unit.StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.QualityScore != 4 {
		t.Fatalf("expected quality score 4, got %d", approved.QualityScore)
	}
	if approved.ReviewedBy != "R1" || approved.ReviewedAt == nil {
		t.Fatalf("expected reviewer fields set: %#v", approved)
	}

	// Approved is terminal; nothing further is legal.
	if _, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{
		Decision: engine.DecisionApprove,
		Checked:  []string{"accuracy"},
	}, reviewer); !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for re-review, got %v", err)
	}
	if _, err := eng.Submit(ctx, items[0].ID, "rewrite", translator); !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for submitting approved unit, got %v", err)
	}
}

func TestRejectAndResubmit(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	_, items := createPacket(t, eng, fiveSentences, []string{"T1"})

	if _, err := eng.Submit(ctx, items[0].ID, "first attempt", translator); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{Decision: engine.DecisionReject}, reviewer); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for missing reason, got %v", err)
	}

	rejected, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{
		Decision: engine.DecisionReject,
		Reason:   "wrong dialect",
	}, reviewer)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if rejected.Status != unit.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason != "wrong dialect" {
		t.Fatalf("expected rejection reason stored, got %q", rejected.RejectionReason)
	}
	if rejected.QualityScore != 0 {
		t.Fatalf("expected no quality score on rejection, got %d", rejected.QualityScore)
	}

	resubmitted, err := eng.Submit(ctx, items[0].ID, "second attempt", translator)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.Status != unit.StatusInQA {
		t.Fatalf("expected in_qa after resubmit, got %s", resubmitted.Status)
	}
	if resubmitted.RejectionReason != "wrong dialect" {
		t.Fatalf("expected rejection reason kept as history, got %q", resubmitted.RejectionReason)
	}
	if resubmitted.TargetText != "second attempt" {
		t.Fatalf("expected revised target text, got %q", resubmitted.TargetText)
	}
}

func TestReviewRequiresReviewerRole(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	_, items := createPacket(t, eng, fiveSentences, []string{"T1"})

	if _, err := eng.Submit(ctx, items[0].ID, "translated", translator); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	for _, actor := range []identity.Actor{translator, admin} {
		if _, err := eng.Review(ctx, items[0].ID, engine.ReviewRequest{
			Decision: engine.DecisionApprove,
			Checked:  []string{"accuracy"},
		}, actor); !errors.Is(err, engine.ErrUnauthorized) {
			t.Fatalf("%s: expected authorization error, got %v", actor.Role, err)
		}
	}
}

func TestReviewRejectsPendingUnit(t *testing.T) {
	eng := newEngine(t)
	_, items := createPacket(t, eng, fiveSentences, []string{"T1"})

	if _, err := eng.Review(context.Background(), items[0].ID, engine.ReviewRequest{
		Decision: engine.DecisionApprove,
		Checked:  []string{"accuracy"},
	}, reviewer); !errors.Is(err, engine.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for pending unit, got %v", err)
	}
}

func TestPacketCompletesWhenAllUnitsApproved(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	packet, items := createPacket(t, eng, "Sentence one is long enough. Sentence two is long enough.", []string{"T1"})
	if len(items) != 2 {
		t.Fatalf("expected two units, got %d", len(items))
	}

	for _, item := range items {
		if _, err := eng.Submit(ctx, item.ID, "translated", translator); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if _, err := eng.Review(ctx, item.ID, engine.ReviewRequest{
			Decision: engine.DecisionApprove,
			Checked:  eng.Checklist(),
		}, reviewer); err != nil {
			t.Fatalf("Review failed: %v", err)
		}
	}

	fetched, err := eng.Store().GetPacket(ctx, packet.ID)
	if err != nil {
		t.Fatalf("GetPacket failed: %v", err)
	}
	if fetched.Status != unit.PacketCompleted {
		t.Fatalf("expected completed packet, got %s", fetched.Status)
	}
}

func TestArchivePacket(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	packet, _ := createPacket(t, eng, fiveSentences, []string{"T1"})

	if err := eng.ArchivePacket(ctx, packet.ID, translator); !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := eng.ArchivePacket(ctx, "missing-packet", admin); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := eng.ArchivePacket(ctx, packet.ID, admin); err != nil {
		t.Fatalf("ArchivePacket failed: %v", err)
	}

	fetched, err := eng.Store().GetPacket(ctx, packet.ID)
	if err != nil {
		t.Fatalf("GetPacket failed: %v", err)
	}
	if fetched.Status != unit.PacketArchived {
		t.Fatalf("expected archived, got %s", fetched.Status)
	}
}

func TestListAssignedOrdering(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	createPacket(t, eng, fiveSentences, []string{"T1", "T2"})

	mine, err := eng.ListAssigned(ctx, "T1")
	if err != nil {
		t.Fatalf("ListAssigned failed: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected three units for T1, got %d", len(mine))
	}
	for i := 1; i < len(mine); i++ {
		if mine[i].SequenceNumber <= mine[i-1].SequenceNumber {
			t.Fatalf("expected sequence order, got %d then %d", mine[i-1].SequenceNumber, mine[i].SequenceNumber)
		}
	}

	if _, err := eng.ListAssigned(ctx, "  "); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for blank translator, got %v", err)
	}
}
