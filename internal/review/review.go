// Package review drives the QA side of the lifecycle: a FIFO queue of
// submitted units and cursor-style iteration for reviewers working through it.
package review

import (
	"context"
	"fmt"

	"loom/internal/engine"
	"loom/internal/identity"
	"loom/internal/unit"
)

// Flow is a thin reviewer-facing facade over the engine. Queue reads are live
// views: every call reflects the current in_qa set, never a snapshot.
type Flow struct {
	engine *engine.Engine
}

// NewFlow wraps an engine for review-queue traversal.
func NewFlow(eng *engine.Engine) *Flow {
	return &Flow{engine: eng}
}

// Queue returns all units awaiting review, oldest submission first.
func (f *Flow) Queue(ctx context.Context) ([]*unit.Item, error) {
	return f.engine.ReviewQueue(ctx)
}

// Next returns the unit that follows afterID in queue order. An afterID of
// zero yields the head of the queue. When nothing follows, the queue is
// exhausted and a not-found error is returned.
func (f *Flow) Next(ctx context.Context, afterID int64) (*unit.Item, error) {
	queue, err := f.engine.ReviewQueue(ctx)
	if err != nil {
		return nil, err
	}
	if afterID == 0 {
		if len(queue) == 0 {
			return nil, engine.Wrap(engine.ErrNotFound, "review next", "review queue is empty", nil)
		}
		return queue[0], nil
	}
	for i, item := range queue {
		if item.ID == afterID {
			if i+1 >= len(queue) {
				return nil, engine.Wrap(engine.ErrNotFound, "review next", "review queue is exhausted", nil)
			}
			return queue[i+1], nil
		}
	}
	// The cursor unit was decided (or never queued) since the caller saw it;
	// restart from the head rather than failing the traversal.
	if len(queue) == 0 {
		return nil, engine.Wrap(engine.ErrNotFound, "review next", "review queue is empty", nil)
	}
	return queue[0], nil
}

// Approve records a passing review for the unit, deriving its quality score
// from the checked checklist items.
func (f *Flow) Approve(ctx context.Context, unitID int64, checked []string, actor identity.Actor) (*unit.Item, error) {
	return f.engine.Review(ctx, unitID, engine.ReviewRequest{
		Decision: engine.DecisionApprove,
		Checked:  checked,
	}, actor)
}

// Reject returns the unit to its translator with the given reason.
func (f *Flow) Reject(ctx context.Context, unitID int64, reason string, actor identity.Actor) (*unit.Item, error) {
	return f.engine.Review(ctx, unitID, engine.ReviewRequest{
		Decision: engine.DecisionReject,
		Reason:   reason,
	}, actor)
}

// Summary describes the queue for status displays.
func (f *Flow) Summary(ctx context.Context) (string, error) {
	queue, err := f.engine.ReviewQueue(ctx)
	if err != nil {
		return "", err
	}
	if len(queue) == 0 {
		return "review queue is empty", nil
	}
	return fmt.Sprintf("%d unit(s) awaiting review, next is unit %d", len(queue), queue[0].ID), nil
}
