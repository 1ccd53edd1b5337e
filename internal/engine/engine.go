package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"loom/internal/config"
	"loom/internal/distribute"
	"loom/internal/identity"
	"loom/internal/logging"
	"loom/internal/segment"
	"loom/internal/store"
	"loom/internal/unit"
)

// Engine owns the work-unit lifecycle: packet creation, draft and submission
// guards, and review decisions. It authorizes every operation against the
// actor's role and unit ownership but never authenticates.
type Engine struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an Engine around the provided store and configuration.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "engine"),
	}
}

// Checklist returns the configured QA checklist items.
func (e *Engine) Checklist() []string {
	return append([]string(nil), e.cfg.Review.Checklist...)
}

// Store exposes the underlying store for read-only collaborators.
func (e *Engine) Store() *store.Store {
	return e.store
}

// CreatePacketRequest carries everything needed to segment and distribute one
// source document.
type CreatePacketRequest struct {
	SourceRef     string
	SourceText    string
	TemplateRef   string
	StyleTagRef   string
	TaskType      string
	Granularity   segment.Granularity
	TranslatorIDs []string
}

// CreatePacket segments the source document, distributes fragments across the
// roster, and persists the packet atomically. A document yielding zero
// qualifying fragments fails the whole creation; nothing is persisted.
func (e *Engine) CreatePacket(ctx context.Context, req CreatePacketRequest, actor identity.Actor) (*unit.Packet, []unit.Item, error) {
	if !actor.Can(identity.ActionCreatePacket) {
		return nil, nil, Wrap(ErrUnauthorized, "create packet", fmt.Sprintf("role %q cannot create packets", actor.Role), nil)
	}
	if strings.TrimSpace(req.SourceRef) == "" {
		return nil, nil, Wrap(ErrValidation, "create packet", "source reference is required", nil)
	}
	if strings.TrimSpace(req.TemplateRef) == "" {
		return nil, nil, Wrap(ErrValidation, "create packet", "template reference is required", nil)
	}
	if _, ok := segment.ParseGranularity(string(req.Granularity)); !ok {
		return nil, nil, Wrap(ErrValidation, "create packet", fmt.Sprintf("unknown granularity %q", req.Granularity), nil)
	}

	fragments := segment.Split(req.SourceText, req.Granularity, segment.Options{
		ParagraphMinChars: e.cfg.Segmenter.ParagraphMinChars,
		SentenceMinChars:  e.cfg.Segmenter.SentenceMinChars,
	})
	if len(fragments) == 0 {
		return nil, nil, Wrap(ErrValidation, "create packet", "document yields no qualifying fragments", nil)
	}

	plan, err := distribute.Distribute(fragments, req.TranslatorIDs)
	if err != nil {
		return nil, nil, Wrap(ErrValidation, "create packet", "distribution failed", err)
	}

	taskType := strings.TrimSpace(req.TaskType)
	if taskType == "" {
		taskType = "translation"
	}

	packet := &unit.Packet{
		ID:          uuid.NewString(),
		SourceRef:   strings.TrimSpace(req.SourceRef),
		TemplateRef: strings.TrimSpace(req.TemplateRef),
		StyleTagRef: strings.TrimSpace(req.StyleTagRef),
		TaskType:    taskType,
		Granularity: req.Granularity,
		CreatedBy:   actor.ID,
		Status:      unit.PacketActive,
	}

	items := make([]unit.Item, len(plan.Placements))
	for i, placement := range plan.Placements {
		items[i] = unit.Item{
			SequenceNumber: placement.SequenceNumber,
			SourceText:     placement.SourceText,
			AssignedTo:     placement.AssignedTo,
		}
	}
	roster := make([]unit.Assignment, len(plan.Roster))
	for i, entry := range plan.Roster {
		roster[i] = unit.Assignment{PacketID: packet.ID, TranslatorID: entry.TranslatorID, Position: entry.Position}
	}

	if err := e.store.CreatePacket(ctx, packet, items, roster); err != nil {
		return nil, nil, fmt.Errorf("persist packet: %w", err)
	}

	e.logger.Info("packet created",
		slog.String("packet", packet.ID),
		slog.String("source", packet.SourceRef),
		slog.Int("units", len(items)),
		slog.Int("translators", len(roster)),
	)
	return packet, items, nil
}

// ArchivePacket hides a packet from default listings without touching units.
func (e *Engine) ArchivePacket(ctx context.Context, packetID string, actor identity.Actor) error {
	if !actor.Can(identity.ActionArchivePacket) {
		return Wrap(ErrUnauthorized, "archive packet", fmt.Sprintf("role %q cannot archive packets", actor.Role), nil)
	}
	packet, err := e.store.GetPacket(ctx, packetID)
	if err != nil {
		return err
	}
	if packet == nil {
		return Wrap(ErrNotFound, "archive packet", fmt.Sprintf("packet %s does not exist", packetID), nil)
	}
	if err := e.store.UpdatePacketStatus(ctx, packetID, unit.PacketArchived); err != nil {
		return fmt.Errorf("archive packet: %w", err)
	}
	return nil
}

// ListAssigned returns a translator's workable units (pending, in_progress,
// or rejected), ordered by sequence number within each packet.
func (e *Engine) ListAssigned(ctx context.Context, translatorID string) ([]*unit.Item, error) {
	if strings.TrimSpace(translatorID) == "" {
		return nil, Wrap(ErrValidation, "list assigned", "translator id is required", nil)
	}
	return e.store.ItemsForTranslator(ctx, translatorID, unit.StatusPending, unit.StatusInProgress, unit.StatusRejected)
}

// SaveDraft stores in-progress target text without advancing the lifecycle.
func (e *Engine) SaveDraft(ctx context.Context, unitID int64, targetText string, actor identity.Actor) (*unit.Item, error) {
	item, err := e.loadItem(ctx, "save draft", unitID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(identity.ActionSaveDraft) || item.AssignedTo != actor.ID {
		return nil, Wrap(ErrUnauthorized, "save draft", fmt.Sprintf("unit %d belongs to %s", unitID, item.AssignedTo), nil)
	}
	if !unit.CanTransition(item.Status, item.Status) {
		return nil, Wrap(ErrIllegalTransition, "save draft", fmt.Sprintf("unit %d is %s", unitID, item.Status), nil)
	}

	item.TargetText = targetText
	return e.persistTransition(ctx, "save draft", item)
}

// Submit moves a pending or rejected unit into the review queue. The target
// text must be non-empty; a rejected unit keeps its rejection reason as
// history while becoming reviewable again.
func (e *Engine) Submit(ctx context.Context, unitID int64, targetText string, actor identity.Actor) (*unit.Item, error) {
	item, err := e.loadItem(ctx, "submit", unitID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(identity.ActionSubmit) || item.AssignedTo != actor.ID {
		return nil, Wrap(ErrUnauthorized, "submit", fmt.Sprintf("unit %d belongs to %s", unitID, item.AssignedTo), nil)
	}
	if !unit.CanTransition(item.Status, unit.StatusInQA) {
		return nil, Wrap(ErrIllegalTransition, "submit", fmt.Sprintf("unit %d is %s, not pending or rejected", unitID, item.Status), nil)
	}
	if strings.TrimSpace(targetText) != "" {
		item.TargetText = targetText
	}
	if strings.TrimSpace(item.TargetText) == "" {
		return nil, Wrap(ErrValidation, "submit", "target text must be non-empty", nil)
	}

	now := time.Now().UTC()
	item.Status = unit.StatusInQA
	item.SubmittedAt = &now

	updated, err := e.persistTransition(ctx, "submit", item)
	if err != nil {
		return nil, err
	}
	e.logger.Info("unit submitted for review",
		slog.Int64("unit", updated.ID),
		slog.String("translator", actor.ID),
	)
	return updated, nil
}

// Decision selects the outcome of a review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReviewRequest carries a reviewer's verdict. Checked lists the checklist
// items that passed (approve); Reason explains a rejection.
type ReviewRequest struct {
	Decision Decision
	Checked  []string
	Reason   string
}

// Review applies an approve or reject decision to an in_qa unit. Approval
// derives the 1-5 quality score from the checklist; rejection requires a
// non-empty reason and returns the unit to the translator for rework.
func (e *Engine) Review(ctx context.Context, unitID int64, req ReviewRequest, actor identity.Actor) (*unit.Item, error) {
	item, err := e.loadItem(ctx, "review", unitID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(identity.ActionReview) {
		return nil, Wrap(ErrUnauthorized, "review", fmt.Sprintf("role %q cannot review", actor.Role), nil)
	}

	now := time.Now().UTC()
	switch req.Decision {
	case DecisionApprove:
		if !unit.CanTransition(item.Status, unit.StatusApproved) {
			return nil, Wrap(ErrIllegalTransition, "review", fmt.Sprintf("unit %d is %s, not in_qa", unitID, item.Status), nil)
		}
		checklist := unit.Checklist{Items: e.cfg.Review.Checklist, Checked: req.Checked}
		score := checklist.Score()
		if score == 0 {
			return nil, Wrap(ErrValidation, "review", "checklist is not configured", nil)
		}
		item.Status = unit.StatusApproved
		item.QualityScore = score
		item.ReviewedBy = actor.ID
		item.ReviewedAt = &now
	case DecisionReject:
		if !unit.CanTransition(item.Status, unit.StatusRejected) {
			return nil, Wrap(ErrIllegalTransition, "review", fmt.Sprintf("unit %d is %s, not in_qa", unitID, item.Status), nil)
		}
		if strings.TrimSpace(req.Reason) == "" {
			return nil, Wrap(ErrValidation, "review", "rejection reason is required", nil)
		}
		item.Status = unit.StatusRejected
		item.RejectionReason = strings.TrimSpace(req.Reason)
		item.ReviewedBy = actor.ID
		item.ReviewedAt = &now
	default:
		return nil, Wrap(ErrValidation, "review", fmt.Sprintf("unknown decision %q", req.Decision), nil)
	}

	updated, err := e.persistTransition(ctx, "review", item)
	if err != nil {
		return nil, err
	}

	e.logger.Info("unit reviewed",
		slog.Int64("unit", updated.ID),
		slog.String("decision", string(req.Decision)),
		slog.String("reviewer", actor.ID),
	)

	if updated.Status == unit.StatusApproved {
		if err := e.maybeCompletePacket(ctx, updated.PacketID); err != nil {
			e.logger.Warn("packet completion check failed",
				slog.String("packet", updated.PacketID),
				slog.Any("error", err),
			)
		}
	}
	return updated, nil
}

// ReviewQueue returns the FIFO review queue, oldest submission first.
func (e *Engine) ReviewQueue(ctx context.Context) ([]*unit.Item, error) {
	return e.store.ReviewQueue(ctx)
}

func (e *Engine) loadItem(ctx context.Context, operation string, unitID int64) (*unit.Item, error) {
	item, err := e.store.GetItem(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, Wrap(ErrNotFound, operation, fmt.Sprintf("unit %d does not exist", unitID), nil)
	}
	return item, nil
}

// persistTransition writes the mutated item under its version guard; a stale
// version means another actor transitioned the unit since it was read.
func (e *Engine) persistTransition(ctx context.Context, operation string, item *unit.Item) (*unit.Item, error) {
	ok, err := e.store.UpdateItemVersioned(ctx, item, item.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Wrap(ErrConflict, operation, fmt.Sprintf("unit %d changed since it was read", item.ID), nil)
	}
	return item, nil
}

// maybeCompletePacket flips a packet to completed once every unit is approved.
func (e *Engine) maybeCompletePacket(ctx context.Context, packetID string) error {
	progress, err := e.store.PacketProgress(ctx, packetID)
	if err != nil {
		return err
	}
	total := 0
	for _, count := range progress {
		total += count
	}
	if total == 0 || progress[unit.StatusApproved] != total {
		return nil
	}
	packet, err := e.store.GetPacket(ctx, packetID)
	if err != nil || packet == nil {
		return err
	}
	if packet.Status != unit.PacketActive {
		return nil
	}
	return e.store.UpdatePacketStatus(ctx, packetID, unit.PacketCompleted)
}
