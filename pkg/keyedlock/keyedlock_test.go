package keyedlock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	l := New()

	release, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	// Reacquire after release must succeed immediately.
	release, err = l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
	release()

	if len(l.entries) != 0 {
		t.Fatalf("expected entries to be cleaned up, got %d", len(l.entries))
	}
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	l := New()

	release, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "a"); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	l := New()

	releaseA, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquiring an unrelated key should not block: %v", err)
	}
	releaseB()
}

func TestMutualExclusion(t *testing.T) {
	l := New()

	var held, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "counter")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			held++
			if held > max {
				max = held
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			held--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Fatalf("expected at most 1 concurrent holder, observed %d", max)
	}
}
