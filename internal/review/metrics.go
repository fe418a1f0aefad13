package review

import "github.com/annoflow/annoflow/internal/annotator"

// Outcome summarizes one decided review cycle for metric updates.
type Outcome struct {
	Approved bool
	// Score is the reviewer's 1-5 rating.
	Score int
	// EffortRatio compares estimated effort to elapsed time; above 1 means
	// the work finished faster than estimated. Zero means unknown.
	EffortRatio float64
}

// MetricsPolicy folds a review outcome into an annotator's rolling
// accuracy and efficiency. How much history weighs against the latest
// outcome is a policy choice, so it is pluggable.
type MetricsPolicy interface {
	Apply(a *annotator.Annotator, o Outcome)
}

// EWMAPolicy updates metrics with an exponentially weighted moving
// average: new = (1-alpha)*old + alpha*latest. Larger alpha reacts faster
// to the most recent outcomes.
type EWMAPolicy struct {
	Alpha float64
}

func NewEWMAPolicy(alpha float64) *EWMAPolicy {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &EWMAPolicy{Alpha: alpha}
}

func (p *EWMAPolicy) Apply(a *annotator.Annotator, o Outcome) {
	accuracyTarget := float64(o.Score) / 5
	a.Accuracy = (1-p.Alpha)*a.Accuracy + p.Alpha*accuracyTarget

	if o.EffortRatio > 0 {
		efficiencyTarget := o.EffortRatio
		if efficiencyTarget > 1 {
			efficiencyTarget = 1
		}
		a.Efficiency = (1-p.Alpha)*a.Efficiency + p.Alpha*efficiencyTarget
	}
}
