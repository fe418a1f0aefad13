package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/sampling"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/internal/workflow"
	"github.com/annoflow/annoflow/pkg/cerr"
)

// Coordinator runs the review pipeline: it drives review transitions
// through the engine, keeps the append-only review log, and is the only
// writer of quality figures and annotator rolling metrics.
type Coordinator struct {
	engine   *workflow.Engine
	records  Repository
	registry *annotator.Registry
	policy   MetricsPolicy

	// adviser may be nil; review proceeds without the advisory then.
	adviser *sampling.Client
}

func NewCoordinator(engine *workflow.Engine, records Repository, registry *annotator.Registry, policy MetricsPolicy, adviser *sampling.Client) *Coordinator {
	return &Coordinator{
		engine:   engine,
		records:  records,
		registry: registry,
		policy:   policy,
		adviser:  adviser,
	}
}

func (c *Coordinator) StartReview(ctx context.Context, taskID, reviewerID string) (*task.Task, error) {
	if reviewerID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "reviewer id is required", nil)
	}
	return c.engine.StartReview(ctx, taskID, reviewerID)
}

// Decide applies one review decision, appends the cycle's record and folds
// the outcome into each assignee's rolling metrics.
func (c *Coordinator) Decide(ctx context.Context, taskID, reviewerID string, decision Decision, comment string, score int) (*task.Task, *Record, error) {
	if err := validateDecision(decision, comment, score); err != nil {
		return nil, nil, err
	}

	advisory := c.advisory(ctx, taskID)

	t, released, err := c.engine.Decide(ctx, taskID, reviewerID, decision == DecisionApprove, func(t *task.Task) {
		quality := float64(score) / 5
		if advisory != nil {
			quality = advisory.QualityScore
			issues := int(advisory.ErrorRate * float64(t.ItemCount))
			t.IssueCount = &issues
		}
		t.QualityScore = &quality
		accuracy := quality
		t.Accuracy = &accuracy
	})
	if err != nil {
		return nil, nil, err
	}

	rec := &Record{
		TaskID:     t.ID,
		Cycle:      t.Generation,
		ReviewerID: reviewerID,
		Decision:   decision,
		Comment:    comment,
		Score:      score,
		CreatedAt:  time.Now(),
	}
	if advisory != nil {
		rec.QualityScore = &advisory.QualityScore
		rec.ErrorRate = &advisory.ErrorRate
	}
	if err := c.records.Append(ctx, rec); err != nil {
		return nil, nil, err
	}

	outcome := Outcome{
		Approved:    decision == DecisionApprove,
		Score:       score,
		EffortRatio: effortRatio(t),
	}
	for _, id := range released {
		if err := c.registry.UpdateMetrics(ctx, id, func(a *annotator.Annotator) {
			c.policy.Apply(a, outcome)
		}); err != nil {
			slog.ErrorContext(ctx, "failed to update annotator metrics", "annotator_id", id, "error", err)
		}
	}
	return t, rec, nil
}

// SkippedTask reports one batch member that was not decided and why.
type SkippedTask struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	Applied []string      `json:"applied"`
	Skipped []SkippedTask `json:"skipped"`
}

// BatchDecide applies the decision to every eligible member. Ineligible or
// contended members are reported individually; they never abort the rest.
// Tasks are processed in sorted ID order so two overlapping batches make
// progress in the same direction.
func (c *Coordinator) BatchDecide(ctx context.Context, taskIDs []string, reviewerID string, decision Decision, comment string, score int) (*BatchResult, error) {
	if err := validateDecision(decision, comment, score); err != nil {
		return nil, err
	}

	ids := dedupe(taskIDs)
	sort.Strings(ids)

	result := &BatchResult{Applied: []string{}, Skipped: []SkippedTask{}}
	for _, id := range ids {
		if _, _, err := c.Decide(ctx, id, reviewerID, decision, comment, score); err != nil {
			reason := cerr.ReasonOf(err)
			if reason == "" {
				var cErr *cerr.Error
				if errors.As(err, &cErr) {
					reason = cErr.Code.String()
				} else {
					reason = cerr.Unknown.String()
				}
			}
			result.Skipped = append(result.Skipped, SkippedTask{TaskID: id, Reason: reason})
			continue
		}
		result.Applied = append(result.Applied, id)
	}
	return result, nil
}

func (c *Coordinator) ListRecords(ctx context.Context, taskID string) ([]*Record, error) {
	return c.records.ListByTask(ctx, taskID)
}

// advisory consults the sampling service when configured. Failures are
// logged and swallowed: the advisory never gates a decision.
func (c *Coordinator) advisory(ctx context.Context, taskID string) *sampling.Result {
	if c.adviser == nil {
		return nil
	}
	t, err := c.engine.GetTask(ctx, taskID)
	if err != nil {
		return nil
	}
	result, err := c.adviser.Evaluate(ctx, sampling.DefaultRequest(t.ID, t.CompletedCount))
	if err != nil {
		slog.WarnContext(ctx, "sampling advisory unavailable", "task_id", taskID, "error", err)
		return nil
	}
	return result
}

func validateDecision(decision Decision, comment string, score int) error {
	switch decision {
	case DecisionApprove, DecisionReject:
	default:
		return cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("unknown decision %q", decision), nil)
	}
	if score < 1 || score > 5 {
		return cerr.NewError(cerr.InvalidArgument, "score must be between 1 and 5", nil)
	}
	if decision == DecisionReject && comment == "" {
		return cerr.NewErrorWithReason(
			cerr.InvalidArgument,
			cerr.ReasonCommentRequired,
			"a comment is required when rejecting",
			nil,
		)
	}
	return nil
}

func effortRatio(t *task.Task) float64 {
	if t.EstimatedEffort <= 0 {
		return 0
	}
	elapsed := t.UpdatedAt.Sub(t.CreatedAt)
	if elapsed <= 0 {
		return 0
	}
	return float64(t.EstimatedEffort) / float64(elapsed)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

