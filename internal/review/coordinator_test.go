package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/annoflow/annoflow/internal/annotator"
	annotatorrepo "github.com/annoflow/annoflow/internal/annotator/repositoryimpl"
	"github.com/annoflow/annoflow/internal/eventbus"
	"github.com/annoflow/annoflow/internal/review"
	reviewrepo "github.com/annoflow/annoflow/internal/review/repositoryimpl"
	"github.com/annoflow/annoflow/internal/task"
	taskrepo "github.com/annoflow/annoflow/internal/task/repositoryimpl"
	"github.com/annoflow/annoflow/internal/workflow"
	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/storage"
)

type reviewFixture struct {
	coordinator *review.Coordinator
	engine      *workflow.Engine
	tasks       task.Repository
	annotators  annotator.Repository
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	tasks := taskrepo.NewYAMLRepository(store)
	annotators := annotatorrepo.NewYAMLRepository(store)
	registry := annotator.NewRegistry(annotators, 2*time.Second)
	engine := workflow.NewEngine(tasks, registry, eventbus.New(), 2*time.Second, 3)
	coordinator := review.NewCoordinator(engine, reviewrepo.NewYAMLRepository(store), registry, review.NewEWMAPolicy(0.3), nil)
	return &reviewFixture{
		coordinator: coordinator,
		engine:      engine,
		tasks:       tasks,
		annotators:  annotators,
	}
}

// bringToReviewing seeds a task and annotator and walks the task up to
// Reviewing under the given reviewer.
func (f *reviewFixture) bringToReviewing(t *testing.T, taskID, annotatorID, reviewerID string) {
	t.Helper()
	ctx := context.Background()
	if err := f.tasks.Create(ctx, &task.Task{
		ID:         taskID,
		Kind:       "ner",
		ItemCount:  5,
		Status:     task.StatusPending,
		Generation: 1,
	}); err != nil {
		t.Fatalf("failed to seed task %s: %v", taskID, err)
	}
	if _, err := f.annotators.Get(ctx, annotatorID); err != nil {
		if err := f.annotators.Create(ctx, &annotator.Annotator{
			ID:           annotatorID,
			Skills:       []string{"ner"},
			Capacity:     5,
			Accuracy:     0.5,
			Efficiency:   0.5,
			Availability: annotator.AvailabilityOnline,
		}); err != nil {
			t.Fatalf("failed to seed annotator %s: %v", annotatorID, err)
		}
	}
	if _, err := f.engine.Assign(ctx, taskID, []string{annotatorID}); err != nil {
		t.Fatalf("assign %s failed: %v", taskID, err)
	}
	if _, err := f.engine.Begin(ctx, taskID); err != nil {
		t.Fatalf("begin %s failed: %v", taskID, err)
	}
	if _, err := f.engine.Submit(ctx, taskID, 5); err != nil {
		t.Fatalf("submit %s failed: %v", taskID, err)
	}
	if _, err := f.coordinator.StartReview(ctx, taskID, reviewerID); err != nil {
		t.Fatalf("start review %s failed: %v", taskID, err)
	}
}

func TestDecideApprove(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")

	got, rec, err := f.coordinator.Decide(ctx, "task-1", "rev-1", review.DecisionApprove, "clean work", 4)
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if got.Status != task.StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.QualityScore == nil || *got.QualityScore != 0.8 {
		t.Errorf("expected quality score 0.8 from rating 4, got %v", got.QualityScore)
	}
	if rec.TaskID != "task-1" || rec.Cycle != 1 || rec.Decision != review.DecisionApprove || rec.Score != 4 {
		t.Errorf("unexpected record %+v", rec)
	}

	records, err := f.coordinator.ListRecords(ctx, "task-1")
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	// The outcome folds into the assignee's rolling accuracy.
	a, err := f.annotators.Get(ctx, "ann-1")
	if err != nil {
		t.Fatalf("failed to get annotator: %v", err)
	}
	want := 0.7*0.5 + 0.3*0.8
	if diff := a.Accuracy - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected accuracy %v, got %v", want, a.Accuracy)
	}
}

func TestDecideRejectRequiresComment(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")

	_, _, err := f.coordinator.Decide(ctx, "task-1", "rev-1", review.DecisionReject, "", 2)
	if err == nil {
		t.Fatal("expected rejection without comment to fail")
	}
	if cerr.ReasonOf(err) != cerr.ReasonCommentRequired {
		t.Errorf("expected reason %s, got %s", cerr.ReasonCommentRequired, cerr.ReasonOf(err))
	}

	tk, err := f.tasks.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if tk.Status != task.StatusReviewing {
		t.Errorf("failed decision must leave the task reviewing, got %s", tk.Status)
	}

	got, rec, err := f.coordinator.Decide(ctx, "task-1", "rev-1", review.DecisionReject, "labels drift after item 3", 2)
	if err != nil {
		t.Fatalf("reject with comment failed: %v", err)
	}
	if got.Status != task.StatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if rec.Comment == "" {
		t.Error("expected comment on record")
	}
}

func TestDecideValidation(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")

	tests := []struct {
		name     string
		decision review.Decision
		comment  string
		score    int
	}{
		{"unknown decision", review.Decision("maybe"), "x", 3},
		{"score too low", review.DecisionApprove, "", 0},
		{"score too high", review.DecisionApprove, "", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.coordinator.Decide(ctx, "task-1", "rev-1", tt.decision, tt.comment, tt.score)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !cerr.IsCode(err, cerr.InvalidArgument) {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestRecordsAcrossCycles(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")

	if _, _, err := f.coordinator.Decide(ctx, "task-1", "rev-1", review.DecisionReject, "redo items 2-4", 2); err != nil {
		t.Fatalf("first cycle reject failed: %v", err)
	}

	// Rework cycle.
	if _, err := f.engine.Assign(ctx, "task-1", []string{"ann-1"}); err != nil {
		t.Fatalf("rework assign failed: %v", err)
	}
	if _, err := f.engine.Begin(ctx, "task-1"); err != nil {
		t.Fatalf("rework begin failed: %v", err)
	}
	if _, err := f.engine.Submit(ctx, "task-1", 5); err != nil {
		t.Fatalf("rework submit failed: %v", err)
	}
	if _, err := f.coordinator.StartReview(ctx, "task-1", "rev-1"); err != nil {
		t.Fatalf("rework review failed: %v", err)
	}
	if _, _, err := f.coordinator.Decide(ctx, "task-1", "rev-1", review.DecisionApprove, "", 5); err != nil {
		t.Fatalf("second cycle approve failed: %v", err)
	}

	records, err := f.coordinator.ListRecords(ctx, "task-1")
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per cycle, got %d", len(records))
	}
	if records[0].Cycle != 1 || records[0].Decision != review.DecisionReject {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].Cycle != 2 || records[1].Decision != review.DecisionApprove {
		t.Errorf("unexpected second record %+v", records[1])
	}
}

func TestBatchDecide(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")
	f.bringToReviewing(t, "task-2", "ann-1", "rev-1")
	// task-3 is held by another reviewer, task-4 never reached review.
	f.bringToReviewing(t, "task-3", "ann-1", "rev-2")
	if err := f.tasks.Create(ctx, &task.Task{
		ID:         "task-4",
		Kind:       "ner",
		ItemCount:  5,
		Status:     task.StatusPending,
		Generation: 1,
	}); err != nil {
		t.Fatalf("failed to seed task-4: %v", err)
	}

	ids := []string{"task-2", "task-4", "task-1", "task-3", "task-2"}
	result, err := f.coordinator.BatchDecide(ctx, ids, "rev-1", review.DecisionApprove, "", 4)
	if err != nil {
		t.Fatalf("batch decide failed: %v", err)
	}

	if len(result.Applied) != 2 || result.Applied[0] != "task-1" || result.Applied[1] != "task-2" {
		t.Errorf("expected task-1 and task-2 applied in order, got %v", result.Applied)
	}
	skipped := make(map[string]string, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped[s.TaskID] = s.Reason
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped, got %v", result.Skipped)
	}
	if skipped["task-3"] != cerr.ReasonAlreadyReviewing {
		t.Errorf("expected task-3 skipped with %s, got %s", cerr.ReasonAlreadyReviewing, skipped["task-3"])
	}
	if skipped["task-4"] != cerr.ReasonInvalidState {
		t.Errorf("expected task-4 skipped with %s, got %s", cerr.ReasonInvalidState, skipped["task-4"])
	}

	// Applied members really were decided.
	for _, id := range result.Applied {
		tk, err := f.tasks.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to get %s: %v", id, err)
		}
		if tk.Status != task.StatusApproved {
			t.Errorf("expected %s approved, got %s", id, tk.Status)
		}
	}
	// Skipped members were untouched.
	tk, err := f.tasks.Get(ctx, "task-3")
	if err != nil {
		t.Fatalf("failed to get task-3: %v", err)
	}
	if tk.Status != task.StatusReviewing {
		t.Errorf("expected task-3 still reviewing, got %s", tk.Status)
	}
}

func TestBatchDecideRejectsBadInputUpfront(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.bringToReviewing(t, "task-1", "ann-1", "rev-1")

	_, err := f.coordinator.BatchDecide(ctx, []string{"task-1"}, "rev-1", review.DecisionReject, "", 2)
	if err == nil {
		t.Fatal("expected batch reject without comment to fail as a whole")
	}
	if cerr.ReasonOf(err) != cerr.ReasonCommentRequired {
		t.Errorf("expected reason %s, got %s", cerr.ReasonCommentRequired, cerr.ReasonOf(err))
	}
}
