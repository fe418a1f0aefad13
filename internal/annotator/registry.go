package annotator

import (
	"context"
	"fmt"
	"time"

	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/keyedlock"
)

// Registry is the only load mutator for annotators. Reserve, Release and
// UpdateMetrics each run as one read-modify-write under a per-annotator
// lock, so concurrent reservations racing for the last capacity unit see a
// fresh counter and exactly one wins.
type Registry struct {
	repo     Repository
	locks    *keyedlock.KeyedLock
	lockWait time.Duration
}

func NewRegistry(repo Repository, lockWait time.Duration) *Registry {
	return &Registry{
		repo:     repo,
		locks:    keyedlock.New(),
		lockWait: lockWait,
	}
}

func (r *Registry) Get(ctx context.Context, id string) (*Annotator, error) {
	return r.repo.Get(ctx, id)
}

// GetCandidates returns annotators that carry the kind skill and are not
// offline. Capacity is not checked here; reservation decides that under the
// lock.
func (r *Registry) GetCandidates(ctx context.Context, kind string) ([]*Annotator, error) {
	all, _, err := r.repo.List(ctx, kind, 0, 0)
	if err != nil {
		return nil, err
	}
	candidates := make([]*Annotator, 0, len(all))
	for _, a := range all {
		if a.Availability == AvailabilityOffline {
			continue
		}
		candidates = append(candidates, a)
	}
	return candidates, nil
}

// ReserveCapacity increments the annotator's load if headroom remains.
func (r *Registry) ReserveCapacity(ctx context.Context, id string) error {
	return r.withLock(ctx, id, func(a *Annotator) error {
		if a.CurrentLoad >= a.Capacity {
			return cerr.NewErrorWithReason(
				cerr.ResourceExhausted,
				cerr.ReasonCapacityExceeded,
				fmt.Sprintf("annotator %s is at capacity (%d/%d)", a.ID, a.CurrentLoad, a.Capacity),
				nil,
			)
		}
		a.CurrentLoad++
		return nil
	})
}

// ReleaseCapacity decrements the annotator's load. Releasing at zero is a
// no-op so release paths stay idempotent.
func (r *Registry) ReleaseCapacity(ctx context.Context, id string) error {
	return r.withLock(ctx, id, func(a *Annotator) error {
		if a.CurrentLoad > 0 {
			a.CurrentLoad--
		}
		return nil
	})
}

// UpdateProfile applies an administrative change under the annotator lock
// so it cannot interleave with a reservation.
func (r *Registry) UpdateProfile(ctx context.Context, id string, fn func(a *Annotator) error) error {
	return r.withLock(ctx, id, fn)
}

// UpdateMetrics applies fn to the annotator's rolling metrics under the
// same lock as capacity accounting.
func (r *Registry) UpdateMetrics(ctx context.Context, id string, fn func(a *Annotator)) error {
	return r.withLock(ctx, id, func(a *Annotator) error {
		fn(a)
		return nil
	})
}

func (r *Registry) withLock(ctx context.Context, id string, fn func(a *Annotator) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()
	release, err := r.locks.Acquire(lockCtx, id)
	if err != nil {
		return cerr.NewErrorWithReason(
			cerr.Unavailable,
			cerr.ReasonBusy,
			fmt.Sprintf("annotator %s is busy, retry later", id),
			err,
		)
	}
	defer release()

	a, err := r.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	return r.repo.Update(ctx, a)
}
