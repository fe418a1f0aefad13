// Package allocator computes annotator-task matches. It only reads
// snapshots and never mutates state: commits go through the workflow
// engine, which re-checks capacity atomically.
package allocator

import (
	"fmt"
	"time"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
)

// Weights tunes the recommendation score:
//
//	score = Skill·skillMatch + Headroom·(1 − load/capacity) + Accuracy·accuracy + Urgency·deadlineUrgency
//
// skillMatch gates eligibility, so its term is constant for every scored
// candidate; it still participates so operators can reason about the
// printed score.
type Weights struct {
	Skill    float64
	Headroom float64
	Accuracy float64
	Urgency  float64
}

func DefaultWeights() Weights {
	return Weights{Skill: 0.35, Headroom: 0.25, Accuracy: 0.25, Urgency: 0.15}
}

// ValidateManualAssignment checks an operator-chosen assignment against the
// task's state and each annotator's skills and headroom. It is a pure
// pre-check; the engine repeats the capacity check under the annotator lock
// when it commits.
func ValidateManualAssignment(t *task.Task, annotators []*annotator.Annotator, maxAssigneesCap int) error {
	if !task.Assignable(t.Status) {
		return cerr.NewErrorWithReason(
			cerr.FailedPrecondition,
			cerr.ReasonInvalidState,
			fmt.Sprintf("task %s is %s, not assignable", t.ID, t.Status),
			nil,
		)
	}
	if len(annotators) == 0 {
		return cerr.NewError(cerr.InvalidArgument, "at least one annotator is required", nil)
	}
	maxN := t.MaxAssignees
	if maxN <= 0 || maxN > maxAssigneesCap {
		maxN = maxAssigneesCap
	}
	if len(annotators) > maxN {
		return cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("task %s accepts at most %d assignees", t.ID, maxN), nil)
	}

	seen := make(map[string]struct{}, len(annotators))
	for _, a := range annotators {
		if _, dup := seen[a.ID]; dup {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("annotator %s listed twice", a.ID), nil)
		}
		seen[a.ID] = struct{}{}

		if !a.HasSkill(t.Kind) {
			return cerr.NewErrorWithReason(
				cerr.InvalidArgument,
				cerr.ReasonSkillMismatch,
				fmt.Sprintf("annotator %s lacks skill %q", a.ID, t.Kind),
				nil,
			)
		}
		if a.Availability == annotator.AvailabilityOffline {
			return cerr.NewErrorWithReason(
				cerr.ResourceExhausted,
				cerr.ReasonCapacityExceeded,
				fmt.Sprintf("annotator %s is offline", a.ID),
				nil,
			)
		}
		if a.Headroom() <= 0 {
			return cerr.NewErrorWithReason(
				cerr.ResourceExhausted,
				cerr.ReasonCapacityExceeded,
				fmt.Sprintf("annotator %s is at capacity (%d/%d)", a.ID, a.CurrentLoad, a.Capacity),
				nil,
			)
		}
	}
	return nil
}

// DeadlineUrgency maps time remaining until the deadline into [0,1]; a task
// due now or overdue scores 1, a task a full horizon away scores 0.
func DeadlineUrgency(now, deadline time.Time, horizon time.Duration) float64 {
	if horizon <= 0 {
		return 0
	}
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 1
	}
	if remaining >= horizon {
		return 0
	}
	return 1 - float64(remaining)/float64(horizon)
}
