package review

import "time"

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Record is one review outcome. Records are append-only, keyed by
// (task, cycle): a rejected task reopened for rework produces a new record
// on its next cycle instead of overwriting this one.
type Record struct {
	TaskID     string   `yaml:"task_id" json:"taskId"`
	Cycle      int      `yaml:"cycle" json:"cycle"`
	ReviewerID string   `yaml:"reviewer_id" json:"reviewerId"`
	Decision   Decision `yaml:"decision" json:"decision"`
	Comment    string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	Score      int      `yaml:"score" json:"score"`

	// Advisory figures from the sampling service, when it was consulted.
	QualityScore *float64 `yaml:"quality_score,omitempty" json:"qualityScore,omitempty"`
	ErrorRate    *float64 `yaml:"error_rate,omitempty" json:"errorRate,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
}
