// Package workflow holds the engine that owns every task status transition
// and every capacity counter change. Other components read freely but
// mutate only through here.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/annoflow/annoflow/internal/allocator"
	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/eventbus"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/keyedlock"
)

type Engine struct {
	tasks           task.Repository
	registry        *annotator.Registry
	bus             *eventbus.Bus
	locks           *keyedlock.KeyedLock
	lockWait        time.Duration
	maxAssigneesCap int
}

func NewEngine(tasks task.Repository, registry *annotator.Registry, bus *eventbus.Bus, lockWait time.Duration, maxAssigneesCap int) *Engine {
	return &Engine{
		tasks:           tasks,
		registry:        registry,
		bus:             bus,
		locks:           keyedlock.New(),
		lockWait:        lockWait,
		maxAssigneesCap: maxAssigneesCap,
	}
}

// GetTask reads the current task snapshot without taking the task lock.
func (e *Engine) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	return e.tasks.Get(ctx, taskID)
}

// Assign validates and commits a manual assignment as one atomic unit:
// either every annotator gains a capacity unit and the task becomes
// Assigned, or nothing changes. A task still in Rejected is reopened into a
// new generation first.
func (e *Engine) Assign(ctx context.Context, taskID string, annotatorIDs []string) (*task.Task, error) {
	release, err := e.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == task.StatusRejected {
		reopenInPlace(t)
	}

	annotators := make([]*annotator.Annotator, 0, len(annotatorIDs))
	for _, id := range annotatorIDs {
		a, err := e.registry.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		annotators = append(annotators, a)
	}
	if err := allocator.ValidateManualAssignment(t, annotators, e.maxAssigneesCap); err != nil {
		return nil, err
	}

	// Reserve in sorted ID order so two overlapping assignments cannot
	// chase each other's reservations in opposite orders.
	sorted := append([]string(nil), annotatorIDs...)
	sort.Strings(sorted)
	reserved := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if err := e.registry.ReserveCapacity(ctx, id); err != nil {
			e.releaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, id)
	}

	t.AssigneeIDs = append([]string(nil), annotatorIDs...)
	t.Status = task.StatusAssigned
	t.UpdatedAt = time.Now()
	if err := e.tasks.Update(ctx, t); err != nil {
		e.releaseAll(ctx, reserved)
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTypeTaskAssigned, t.ID, "", map[string]string{
		"kind":   t.Kind,
		"status": string(t.Status),
	})
	return t, nil
}

// Begin moves an assigned task into execution.
func (e *Engine) Begin(ctx context.Context, taskID string) (*task.Task, error) {
	return e.transition(ctx, taskID, task.StatusInProgress, nil)
}

// Submit records the completed count and moves the task to Submitted. It
// fails IncompleteWork, leaving the count untouched, when fewer than
// itemCount units are done.
func (e *Engine) Submit(ctx context.Context, taskID string, completedCount int) (*task.Task, error) {
	return e.transition(ctx, taskID, task.StatusSubmitted, func(t *task.Task) error {
		if completedCount < 0 || completedCount > t.ItemCount {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("completed count %d out of range [0,%d]", completedCount, t.ItemCount), nil)
		}
		if completedCount < t.ItemCount {
			return cerr.NewErrorWithReason(
				cerr.FailedPrecondition,
				cerr.ReasonIncompleteWork,
				fmt.Sprintf("task %s has %d of %d items completed", t.ID, completedCount, t.ItemCount),
				nil,
			)
		}
		t.CompletedCount = completedCount
		return nil
	})
}

// StartReview places the single-reviewer lock on a submitted task.
func (e *Engine) StartReview(ctx context.Context, taskID, reviewerID string) (*task.Task, error) {
	release, err := e.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == task.StatusReviewing {
		return nil, cerr.NewErrorWithReason(
			cerr.Aborted,
			cerr.ReasonAlreadyReviewing,
			fmt.Sprintf("task %s is already under review by %s", t.ID, t.ReviewerID),
			nil,
		)
	}
	if !task.CanTransition(t.Status, task.StatusReviewing) {
		return nil, invalidTransition(t, task.StatusReviewing)
	}

	t.Status = task.StatusReviewing
	t.ReviewerID = reviewerID
	t.UpdatedAt = time.Now()
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTypeReviewStarted, t.ID, "", map[string]string{
		"kind":     t.Kind,
		"reviewer": reviewerID,
	})
	return t, nil
}

// Decide finishes a review cycle. The transition, the caller's hook (which
// the review coordinator uses to write quality fields) and the capacity
// release for every assignee are applied under the task lock; the released
// assignee IDs are returned so the coordinator can update their metrics.
func (e *Engine) Decide(ctx context.Context, taskID, reviewerID string, approve bool, apply func(t *task.Task)) (*task.Task, []string, error) {
	release, err := e.lockTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if t.Status != task.StatusReviewing {
		return nil, nil, invalidTransition(t, task.StatusApproved)
	}
	if t.ReviewerID != reviewerID {
		return nil, nil, cerr.NewErrorWithReason(
			cerr.Aborted,
			cerr.ReasonAlreadyReviewing,
			fmt.Sprintf("task %s is under review by %s", t.ID, t.ReviewerID),
			nil,
		)
	}

	to := task.StatusApproved
	if !approve {
		to = task.StatusRejected
	}
	t.Status = to
	if apply != nil {
		apply(t)
	}
	t.UpdatedAt = time.Now()
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, nil, err
	}

	// Terminal either way: the task no longer occupies its assignees.
	released := append([]string(nil), t.AssigneeIDs...)
	e.releaseAll(ctx, released)

	e.bus.PublishNew(eventbus.EventTypeReviewDecided, t.ID, "", map[string]string{
		"kind":     t.Kind,
		"status":   string(t.Status),
		"reviewer": reviewerID,
	})
	return t, released, nil
}

// Reopen starts a new generation from a rejected task. No capacity moves;
// rework needs a fresh Assign and may go to different annotators.
func (e *Engine) Reopen(ctx context.Context, taskID string) (*task.Task, error) {
	release, err := e.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanTransition(t.Status, task.StatusPending) {
		return nil, invalidTransition(t, task.StatusPending)
	}

	reopenInPlace(t)
	t.UpdatedAt = time.Now()
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTypeTaskReopened, t.ID, "", map[string]string{
		"kind":       t.Kind,
		"generation": fmt.Sprintf("%d", t.Generation),
	})
	return t, nil
}

func reopenInPlace(t *task.Task) {
	t.Status = task.StatusPending
	t.Generation++
	t.AssigneeIDs = nil
	t.ReviewerID = ""
	t.CompletedCount = t.CheckpointCount
}

// transition applies a single legal step under the task lock. check runs
// after the legality test and before the write; returning an error aborts
// with no state change.
func (e *Engine) transition(ctx context.Context, taskID string, to task.Status, check func(t *task.Task) error) (*task.Task, error) {
	release, err := e.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanTransition(t.Status, to) {
		return nil, invalidTransition(t, to)
	}
	if check != nil {
		if err := check(t); err != nil {
			return nil, err
		}
	}

	t.Status = to
	t.UpdatedAt = time.Now()
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTypeTaskStatusChanged, t.ID, "", map[string]string{
		"kind":   t.Kind,
		"status": string(t.Status),
	})
	return t, nil
}

func (e *Engine) lockTask(ctx context.Context, taskID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()
	release, err := e.locks.Acquire(lockCtx, taskID)
	if err != nil {
		return nil, cerr.NewErrorWithReason(
			cerr.Unavailable,
			cerr.ReasonBusy,
			fmt.Sprintf("task %s is busy, retry later", taskID),
			err,
		)
	}
	return release, nil
}

func (e *Engine) releaseAll(ctx context.Context, annotatorIDs []string) {
	for _, id := range annotatorIDs {
		if err := e.registry.ReleaseCapacity(ctx, id); err != nil {
			slog.ErrorContext(ctx, "failed to release capacity", "annotator_id", id, "error", err)
		}
	}
}

func invalidTransition(t *task.Task, to task.Status) error {
	return cerr.NewErrorWithReason(
		cerr.FailedPrecondition,
		cerr.ReasonInvalidState,
		fmt.Sprintf("task %s cannot move from %s to %s", t.ID, t.Status, to),
		nil,
	)
}
