package review

import "context"

// Repository is an append-only log of review records.
type Repository interface {
	Append(ctx context.Context, r *Record) error
	ListByTask(ctx context.Context, taskID string) ([]*Record, error)
}
