package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"animlab/internal/logging"
)

func TestPoolRunsScheduledTasks(t *testing.T) {
	pool := NewPool(2, 8, logging.NewNop())
	pool.Start(context.Background())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Schedule(Task{ID: "t", Kind: "test", Run: func(context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Schedule returned error: %v", err)
		}
	}
	wg.Wait()
	pool.Stop()
	if ran.Load() != 5 {
		t.Fatalf("expected 5 tasks, got %d", ran.Load())
	}
}

func TestScheduleRejectsWhenFull(t *testing.T) {
	pool := NewPool(1, 1, logging.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Start(context.Background())
	defer pool.Stop()

	block := Task{ID: "block", Kind: "test", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	if err := pool.Schedule(block); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	<-started
	if err := pool.Schedule(Task{ID: "queued", Kind: "test", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("expected queue slot, got %v", err)
	}
	err := pool.Schedule(Task{ID: "overflow", Kind: "test", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(release)
}

func TestScheduleAfterStop(t *testing.T) {
	pool := NewPool(1, 1, nil)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
	err := pool.Schedule(Task{Kind: "test", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	pool := NewPool(1, 4, nil)
	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		if err := pool.Schedule(Task{Kind: "test", Run: func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		}}); err != nil {
			t.Fatalf("Schedule returned error: %v", err)
		}
	}
	pool.Start(context.Background())
	pool.Stop()
	if ran.Load() != 4 {
		t.Fatalf("expected queue drained, ran %d", ran.Load())
	}
}

func TestPanicsAndErrorsAreContained(t *testing.T) {
	pool := NewPool(1, 4, nil)
	pool.Start(context.Background())

	done := make(chan struct{})
	_ = pool.Schedule(Task{Kind: "test", Run: func(context.Context) error { panic("kaboom") }})
	_ = pool.Schedule(Task{Kind: "test", Run: func(context.Context) error { return errors.New("failed") }})
	_ = pool.Schedule(Task{Kind: "test", Run: func(context.Context) error { close(done); return nil }})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	pool.Stop()
}

func TestTaskContextCarriesJobIDAndSurvivesParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	pool := NewPool(1, 1, nil)
	pool.Start(parent)
	cancel()

	got := make(chan error, 1)
	if err := pool.Schedule(Task{ID: "job-1", Kind: "test", Run: func(ctx context.Context) error {
		got <- ctx.Err()
		return nil
	}}); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if err := <-got; err != nil {
		t.Fatalf("expected live task context, got %v", err)
	}
	pool.Stop()
}

func TestScheduleRequiresBody(t *testing.T) {
	pool := NewPool(1, 1, nil)
	if err := pool.Schedule(Task{Kind: "empty"}); err == nil {
		t.Fatal("expected error for task without body")
	}
}
