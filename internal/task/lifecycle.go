package task

// transitions lists the legal successor statuses for each status. Approved
// and Rejected are terminal except for the explicit reopen edge out of
// Rejected.
var transitions = map[Status][]Status{
	StatusPending:    {StatusAssigned},
	StatusAssigned:   {StatusInProgress},
	StatusInProgress: {StatusSubmitted},
	StatusSubmitted:  {StatusReviewing},
	StatusReviewing:  {StatusApproved, StatusRejected},
	StatusApproved:   {},
	StatusRejected:   {StatusPending},
}

// CanTransition reports whether from may move to to in one step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status ends a review cycle. Rejected is
// terminal for the cycle even though reopen can start a new generation.
func IsTerminal(s Status) bool {
	return s == StatusApproved || s == StatusRejected
}

// CountsTowardLoad reports whether a task in status s occupies a unit of its
// assignees' capacity.
func CountsTowardLoad(s Status) bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusSubmitted, StatusReviewing:
		return true
	default:
		return false
	}
}

// Assignable reports whether a task in status s may receive assignees.
// Rejected is included so rework can be redistributed without a separate
// reopen call; the engine reopens it into a new generation first.
func Assignable(s Status) bool {
	return s == StatusPending || s == StatusRejected
}
