package unit

import (
	"math"
	"strings"
	"time"

	"loom/internal/segment"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending Status = "pending"
	// StatusInProgress is reserved for fine-grained tracking of unsaved
	// translator edits; no stored unit currently carries it.
	StatusInProgress Status = "in_progress"
	StatusInQA       Status = "in_qa"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusInQA,
	StatusApproved,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status has no legal outgoing transition.
func (s Status) IsTerminal() bool {
	return s == StatusApproved
}

// IsReworkable reports whether a status can re-enter the review cycle.
func (s Status) IsReworkable() bool {
	return s == StatusRejected
}

type statusTransition struct {
	from Status
	to   Status
}

// legalTransitions is the single source of truth for the lifecycle state
// machine. Draft saves are a pending->pending self-transition so they pass
// through the same table as every other mutation.
var legalTransitions = map[statusTransition]struct{}{
	{from: StatusPending, to: StatusPending}: {},
	{from: StatusPending, to: StatusInQA}:    {},
	{from: StatusRejected, to: StatusInQA}:   {},
	{from: StatusInQA, to: StatusApproved}:   {},
	{from: StatusInQA, to: StatusRejected}:   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	_, ok := legalTransitions[statusTransition{from: from, to: to}]
	return ok
}

// PacketStatus represents the coarse state of a work packet.
type PacketStatus string

const (
	PacketActive    PacketStatus = "active"
	PacketCompleted PacketStatus = "completed"
	PacketArchived  PacketStatus = "archived"
)

// ParsePacketStatus converts a string into a known PacketStatus.
func ParsePacketStatus(value string) (PacketStatus, bool) {
	switch PacketStatus(strings.ToLower(strings.TrimSpace(value))) {
	case PacketActive:
		return PacketActive, true
	case PacketCompleted:
		return PacketCompleted, true
	case PacketArchived:
		return PacketArchived, true
	default:
		return "", false
	}
}

// Packet is one segmentation/distribution job over a single source document.
// Immutable once created except for Status.
type Packet struct {
	ID          string
	SourceRef   string
	TemplateRef string
	StyleTagRef string
	TaskType    string
	Granularity segment.Granularity
	CreatedBy   string
	Status      PacketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is one atomic translation unit persisted in SQLite.
type Item struct {
	ID              int64
	PacketID        string
	SequenceNumber  int
	SourceText      string
	TargetText      string
	Status          Status
	AssignedTo      string
	ReviewedBy      string
	RejectionReason string
	QualityScore    int // 1-5, zero until reviewed
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
}

// Assignment records that a translator is on a packet's roster. Position
// preserves the roster order the distributor cycled through.
type Assignment struct {
	PacketID     string
	TranslatorID string
	Position     int
}

// Checklist carries a reviewer's pass/fail judgements at approval time.
type Checklist struct {
	Items   []string
	Checked []string
}

// Score converts checked/total into the 1-5 integer quality scale. The
// derivation is part of the export contract: round(ratio * 5), clamped so a
// fully unchecked sheet still yields the floor score of 1.
func (c Checklist) Score() int {
	total := len(c.Items)
	if total == 0 {
		return 0
	}
	checked := 0
	marked := make(map[string]struct{}, len(c.Checked))
	for _, item := range c.Checked {
		marked[strings.TrimSpace(item)] = struct{}{}
	}
	for _, item := range c.Items {
		if _, ok := marked[item]; ok {
			checked++
		}
	}
	score := int(math.Round(float64(checked) / float64(total) * 5))
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}
