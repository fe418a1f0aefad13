package allocator

import (
	"testing"
	"time"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
)

func TestValidateManualAssignment(t *testing.T) {
	base := func() *task.Task {
		return &task.Task{
			ID:           "task-1",
			Kind:         "ner",
			Status:       task.StatusPending,
			MaxAssignees: 2,
		}
	}
	online := func(id string, skills ...string) *annotator.Annotator {
		return &annotator.Annotator{
			ID:           id,
			Skills:       skills,
			Capacity:     3,
			Availability: annotator.AvailabilityOnline,
		}
	}

	tests := []struct {
		name       string
		task       *task.Task
		annotators []*annotator.Annotator
		wantCode   cerr.Code
		wantReason string
	}{
		{
			name:       "valid single assignee",
			task:       base(),
			annotators: []*annotator.Annotator{online("ann-1", "ner")},
		},
		{
			name: "rejected task is assignable",
			task: func() *task.Task {
				tk := base()
				tk.Status = task.StatusRejected
				return tk
			}(),
			annotators: []*annotator.Annotator{online("ann-1", "ner")},
		},
		{
			name: "already assigned task",
			task: func() *task.Task {
				tk := base()
				tk.Status = task.StatusAssigned
				return tk
			}(),
			annotators: []*annotator.Annotator{online("ann-1", "ner")},
			wantCode:   cerr.FailedPrecondition,
			wantReason: cerr.ReasonInvalidState,
		},
		{
			name:       "no annotators",
			task:       base(),
			annotators: nil,
			wantCode:   cerr.InvalidArgument,
		},
		{
			name: "too many assignees",
			task: base(),
			annotators: []*annotator.Annotator{
				online("ann-1", "ner"), online("ann-2", "ner"), online("ann-3", "ner"),
			},
			wantCode: cerr.InvalidArgument,
		},
		{
			name: "duplicate annotator",
			task: base(),
			annotators: []*annotator.Annotator{
				online("ann-1", "ner"), online("ann-1", "ner"),
			},
			wantCode: cerr.InvalidArgument,
		},
		{
			name:       "skill mismatch",
			task:       base(),
			annotators: []*annotator.Annotator{online("ann-1", "ocr")},
			wantCode:   cerr.InvalidArgument,
			wantReason: cerr.ReasonSkillMismatch,
		},
		{
			name: "offline annotator",
			task: base(),
			annotators: []*annotator.Annotator{{
				ID:           "ann-1",
				Skills:       []string{"ner"},
				Capacity:     3,
				Availability: annotator.AvailabilityOffline,
			}},
			wantCode:   cerr.ResourceExhausted,
			wantReason: cerr.ReasonCapacityExceeded,
		},
		{
			name: "annotator at capacity",
			task: base(),
			annotators: []*annotator.Annotator{{
				ID:           "ann-1",
				Skills:       []string{"ner"},
				Capacity:     2,
				CurrentLoad:  2,
				Availability: annotator.AvailabilityOnline,
			}},
			wantCode:   cerr.ResourceExhausted,
			wantReason: cerr.ReasonCapacityExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManualAssignment(tt.task, tt.annotators, 3)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !cerr.IsCode(err, tt.wantCode) {
				t.Errorf("expected code %s, got %v", tt.wantCode, err)
			}
			if tt.wantReason != "" && cerr.ReasonOf(err) != tt.wantReason {
				t.Errorf("expected reason %s, got %s", tt.wantReason, cerr.ReasonOf(err))
			}
		})
	}
}

func TestValidateManualAssignmentCapsMaxAssignees(t *testing.T) {
	tk := &task.Task{
		ID:           "task-1",
		Kind:         "ner",
		Status:       task.StatusPending,
		MaxAssignees: 10,
	}
	annotators := make([]*annotator.Annotator, 4)
	for i := range annotators {
		annotators[i] = &annotator.Annotator{
			ID:           string(rune('a' + i)),
			Skills:       []string{"ner"},
			Capacity:     3,
			Availability: annotator.AvailabilityOnline,
		}
	}
	// Per-task limit beyond the system cap is clamped to the cap.
	err := ValidateManualAssignment(tk, annotators, 3)
	if err == nil {
		t.Fatal("expected 4 assignees to exceed the cap of 3")
	}
	if !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestDeadlineUrgency(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	horizon := 72 * time.Hour

	tests := []struct {
		name     string
		deadline time.Time
		want     float64
	}{
		{"overdue", now.Add(-time.Hour), 1},
		{"due now", now, 1},
		{"half horizon away", now.Add(36 * time.Hour), 0.5},
		{"full horizon away", now.Add(72 * time.Hour), 0},
		{"beyond horizon", now.Add(200 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeadlineUrgency(now, tt.deadline, horizon)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("DeadlineUrgency = %v, want %v", got, tt.want)
			}
		})
	}

	if got := DeadlineUrgency(now, now.Add(time.Hour), 0); got != 0 {
		t.Errorf("zero horizon should score 0, got %v", got)
	}
}
