package allocator

import (
	"sort"
	"time"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/task"
)

// Proposal pairs a task with the annotator the recommender ranked highest.
// Score and its factor breakdown are kept so the operator can see why.
type Proposal struct {
	TaskID      string  `json:"taskId"`
	AnnotatorID string  `json:"annotatorId"`
	Score       float64 `json:"score"`
	Skill       float64 `json:"skill"`
	Headroom    float64 `json:"headroom"`
	Accuracy    float64 `json:"accuracy"`
	Urgency     float64 `json:"urgency"`
}

// Unmatched names a task the recommender could not place and why.
type Unmatched struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason"`
}

// Result is a proposal batch. It is advisory: nothing is reserved until the
// caller commits each proposal through the engine.
type Result struct {
	Proposals []Proposal  `json:"proposals"`
	Unmatched []Unmatched `json:"unmatched"`
}

// Recommender is a deterministic greedy matcher. Tasks are taken in
// (priority desc, deadline asc) order; each is given to its highest-scoring
// eligible annotator, whose tentative headroom then shrinks for the rest of
// the batch so one recommendation pass cannot oversubscribe anyone.
type Recommender struct {
	weights Weights
	horizon time.Duration
	now     func() time.Time
}

func NewRecommender(weights Weights, horizon time.Duration) *Recommender {
	return &Recommender{
		weights: weights,
		horizon: horizon,
		now:     time.Now,
	}
}

// WithClock fixes the recommender's clock; tests use it to pin urgency.
func (r *Recommender) WithClock(now func() time.Time) *Recommender {
	r.now = now
	return r
}

func (r *Recommender) Recommend(tasks []*task.Task, annotators []*annotator.Annotator) *Result {
	ordered := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if task.Assignable(t.Status) {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority.Rank() != ordered[j].Priority.Rank() {
			return ordered[i].Priority.Rank() > ordered[j].Priority.Rank()
		}
		if !ordered[i].Deadline.Equal(ordered[j].Deadline) {
			return ordered[i].Deadline.Before(ordered[j].Deadline)
		}
		return ordered[i].ID < ordered[j].ID
	})

	// Tentative headroom per annotator for this batch only.
	headroom := make(map[string]int, len(annotators))
	for _, a := range annotators {
		headroom[a.ID] = a.Headroom()
	}

	now := r.now()
	result := &Result{}
	for _, t := range ordered {
		best := r.pick(t, annotators, headroom, now)
		if best == nil {
			result.Unmatched = append(result.Unmatched, Unmatched{
				TaskID: t.ID,
				Reason: "no eligible annotator with headroom",
			})
			continue
		}
		headroom[best.AnnotatorID]--
		result.Proposals = append(result.Proposals, *best)
	}
	return result
}

type candidate struct {
	annotator *annotator.Annotator
	proposal  Proposal
	tentative int
}

func (r *Recommender) pick(t *task.Task, annotators []*annotator.Annotator, headroom map[string]int, now time.Time) *Proposal {
	urgency := DeadlineUrgency(now, t.Deadline, r.horizon)

	var candidates []candidate
	for _, a := range annotators {
		// Skill match gates eligibility; no match means no score at all.
		if !a.HasSkill(t.Kind) {
			continue
		}
		if a.Availability == annotator.AvailabilityOffline {
			continue
		}
		if headroom[a.ID] <= 0 {
			continue
		}
		loadRatio := 0.0
		if a.Capacity > 0 {
			loadRatio = float64(a.Capacity-headroom[a.ID]) / float64(a.Capacity)
		}
		p := Proposal{
			TaskID:      t.ID,
			AnnotatorID: a.ID,
			Skill:       1,
			Headroom:    1 - loadRatio,
			Accuracy:    a.Accuracy,
			Urgency:     urgency,
		}
		p.Score = r.weights.Skill*p.Skill +
			r.weights.Headroom*p.Headroom +
			r.weights.Accuracy*p.Accuracy +
			r.weights.Urgency*p.Urgency
		candidates = append(candidates, candidate{
			annotator: a,
			proposal:  p,
			tentative: a.Capacity - headroom[a.ID],
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	hard := t.Difficulty == task.DifficultyHard
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.proposal.Score != cj.proposal.Score {
			return ci.proposal.Score > cj.proposal.Score
		}
		if hard {
			if ci.annotator.Level.Rank() != cj.annotator.Level.Rank() {
				return ci.annotator.Level.Rank() > cj.annotator.Level.Rank()
			}
		} else if ci.tentative != cj.tentative {
			return ci.tentative < cj.tentative
		}
		return ci.annotator.ID < cj.annotator.ID
	})
	return &candidates[0].proposal
}
