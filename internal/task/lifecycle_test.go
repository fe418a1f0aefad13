package task

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to assigned", StatusPending, StatusAssigned, true},
		{"assigned to in_progress", StatusAssigned, StatusInProgress, true},
		{"in_progress to submitted", StatusInProgress, StatusSubmitted, true},
		{"submitted to reviewing", StatusSubmitted, StatusReviewing, true},
		{"reviewing to approved", StatusReviewing, StatusApproved, true},
		{"reviewing to rejected", StatusReviewing, StatusRejected, true},
		{"rejected to pending", StatusRejected, StatusPending, true},
		{"pending to in_progress skips assigned", StatusPending, StatusInProgress, false},
		{"pending skips straight to submitted", StatusPending, StatusSubmitted, false},
		{"assigned back to pending", StatusAssigned, StatusPending, false},
		{"submitted back to in_progress", StatusSubmitted, StatusInProgress, false},
		{"approved to anything", StatusApproved, StatusPending, false},
		{"approved to rejected", StatusApproved, StatusRejected, false},
		{"rejected to reviewing", StatusRejected, StatusReviewing, false},
		{"self transition", StatusReviewing, StatusReviewing, false},
		{"unknown status", Status("bogus"), StatusAssigned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusAssigned:   false,
		StatusInProgress: false,
		StatusSubmitted:  false,
		StatusReviewing:  false,
		StatusApproved:   true,
		StatusRejected:   true,
	}
	for s, want := range terminal {
		if got := IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestCountsTowardLoad(t *testing.T) {
	counted := map[Status]bool{
		StatusPending:    false,
		StatusAssigned:   true,
		StatusInProgress: true,
		StatusSubmitted:  true,
		StatusReviewing:  true,
		StatusApproved:   false,
		StatusRejected:   false,
	}
	for s, want := range counted {
		if got := CountsTowardLoad(s); got != want {
			t.Errorf("CountsTowardLoad(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestAssignable(t *testing.T) {
	assignable := map[Status]bool{
		StatusPending:    true,
		StatusAssigned:   false,
		StatusInProgress: false,
		StatusSubmitted:  false,
		StatusReviewing:  false,
		StatusApproved:   false,
		StatusRejected:   true,
	}
	for s, want := range assignable {
		if got := Assignable(s); got != want {
			t.Errorf("Assignable(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityMedium.Rank() || PriorityMedium.Rank() <= PriorityLow.Rank() {
		t.Errorf("priority ranks out of order: high=%d medium=%d low=%d",
			PriorityHigh.Rank(), PriorityMedium.Rank(), PriorityLow.Rank())
	}
	if Priority("bogus").Rank() != 0 {
		t.Errorf("unknown priority should rank 0, got %d", Priority("bogus").Rank())
	}
}
