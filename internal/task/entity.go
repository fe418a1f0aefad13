package task

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusReviewing  Status = "reviewing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities for scheduling; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Task struct {
	ID              string        `yaml:"id" json:"id"`
	Kind            string        `yaml:"kind" json:"kind"`
	Title           string        `yaml:"title" json:"title"`
	Priority        Priority      `yaml:"priority" json:"priority"`
	Difficulty      Difficulty    `yaml:"difficulty" json:"difficulty"`
	ItemCount       int           `yaml:"item_count" json:"itemCount"`
	CompletedCount  int           `yaml:"completed_count" json:"completedCount"`
	Deadline        time.Time     `yaml:"deadline" json:"deadline"`
	EstimatedEffort time.Duration `yaml:"estimated_effort" json:"estimatedEffort"`
	MaxAssignees    int           `yaml:"max_assignees" json:"maxAssignees"`
	AssigneeIDs     []string      `yaml:"assignee_ids" json:"assigneeIds"`
	ReviewerID      string        `yaml:"reviewer_id,omitempty" json:"reviewerId,omitempty"`
	Status          Status        `yaml:"status" json:"status"`

	// Generation counts review cycles: it starts at 1 and increments each
	// time a rejected task is reopened for rework.
	Generation int `yaml:"generation" json:"generation"`

	// CheckpointCount is the completed-count a reopened generation resumes
	// from.
	CheckpointCount int `yaml:"checkpoint_count" json:"checkpointCount"`

	// Quality fields stay nil until a review or sampling pass completes.
	QualityScore *float64 `yaml:"quality_score,omitempty" json:"qualityScore,omitempty"`
	IssueCount   *int     `yaml:"issue_count,omitempty" json:"issueCount,omitempty"`
	Accuracy     *float64 `yaml:"accuracy,omitempty" json:"accuracy,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (t *Task) HasAssignee(annotatorID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == annotatorID {
			return true
		}
	}
	return false
}
