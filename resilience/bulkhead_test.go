package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkheadLimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrentCalls: 2})
	ctx := context.Background()

	var mu sync.Mutex
	active, maxSeen := 0, 0
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Execute(ctx, func(ctx context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				<-release

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if maxSeen > 2 {
		t.Fatalf("maxSeen concurrency = %d, want <= 2", maxSeen)
	}
}

func TestBulkheadRejectsBeyondQueue(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrentCalls: 1, MaxQueuedCalls: 0})
	ctx := context.Background()

	block := make(chan struct{})
	go b.Execute(ctx, func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(5 * time.Millisecond) // let the first call occupy the only slot

	err := b.Execute(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadRejected) {
		t.Fatalf("got %v, want ErrBulkheadRejected", err)
	}
	close(block)
}

func TestBulkheadQueuedCallerAdmittedOnRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrentCalls: 1, MaxQueuedCalls: 1})
	ctx := context.Background()

	block := make(chan struct{})
	go b.Execute(ctx, func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func(ctx context.Context) error { return nil })
	}()

	time.Sleep(5 * time.Millisecond)
	close(block) // free the first slot, queued caller should be admitted

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("queued caller failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued caller was never admitted")
	}
}

func TestBulkheadQueueTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{
		Name:               "test",
		MaxConcurrentCalls: 1,
		MaxQueuedCalls:     1,
		MaxWaitDuration:    10 * time.Millisecond,
	})
	ctx := context.Background()

	block := make(chan struct{})
	defer close(block)
	go b.Execute(ctx, func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	err := b.Execute(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadRejected) {
		t.Fatalf("got %v, want ErrBulkheadRejected after MaxWaitDuration", err)
	}
}
