package cerr

// Domain failure reasons surfaced verbatim to callers. Validation and
// contention failures leave no state change behind; callers decide whether
// to retry.
const (
	ReasonSkillMismatch    = "SkillMismatch"
	ReasonCapacityExceeded = "CapacityExceeded"
	ReasonInvalidState     = "InvalidState"
	ReasonIncompleteWork   = "IncompleteWork"
	ReasonCommentRequired  = "CommentRequired"
	ReasonAlreadyReviewing = "AlreadyReviewing"
	ReasonBusy             = "Busy"
)
