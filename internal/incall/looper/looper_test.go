package looper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManualRunsDelayedInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string

	m.PostDelayed(2*time.Second, func() { order = append(order, "b") })
	m.PostDelayed(time.Second, func() { order = append(order, "a") })
	m.PostDelayed(2*time.Second, func() { order = append(order, "c") })

	m.Advance(1500 * time.Millisecond)
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("after 1.5s order = %v, want [a]", order)
	}

	m.Advance(time.Second)
	if len(order) != 3 || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
	if got := m.Now(); !got.Equal(time.Unix(0, 0).Add(2500 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	task := m.PostDelayed(time.Second, func() { ran = true })

	if !task.Pending() {
		t.Fatal("task should be pending")
	}
	if m.PendingDelayed() != 1 {
		t.Errorf("PendingDelayed() = %d, want 1", m.PendingDelayed())
	}
	if !task.Cancel() {
		t.Fatal("first Cancel() should return true")
	}
	if task.Cancel() {
		t.Error("second Cancel() should return false")
	}

	m.Advance(2 * time.Second)
	if ran {
		t.Error("cancelled task ran")
	}
	if m.PendingDelayed() != 0 {
		t.Errorf("PendingDelayed() = %d, want 0", m.PendingDelayed())
	}
}

func TestManualPostFromTask(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	count := 0
	m.Post(func() {
		count++
		m.Post(func() { count++ })
	})
	if n := m.RunPending(); n != 2 {
		t.Errorf("RunPending() = %d, want 2", n)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestManualRecoversPanics(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	after := false
	m.Post(func() { panic("boom") })
	m.Post(func() { after = true })
	m.RunPending()
	if !after {
		t.Error("task after a panicking task did not run")
	}
}

func TestLoopRunsPostedAndDelayed(t *testing.T) {
	loop := NewLoop(LoopConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fired := make(chan struct{})
	loop.PostDelayed(10*time.Millisecond, func() { close(fired) })

	value := 0
	if err := loop.Call(ctx, func() { value = 42 }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task did not fire")
	}
}

func TestLoopCancelledTaskDoesNotRun(t *testing.T) {
	loop := NewLoop(LoopConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	ran := make(chan struct{}, 1)
	task := loop.PostDelayed(20*time.Millisecond, func() { ran <- struct{}{} })
	task.Cancel()

	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoopSelfPostBeyondQueueSize(t *testing.T) {
	loop := NewLoop(LoopConfig{QueueSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	count := 0
	err := loop.Call(ctx, func() {
		for i := 0; i < 10; i++ {
			loop.Post(func() { count++ })
		}
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if err := loop.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestLoopPostAfterStop(t *testing.T) {
	loop := NewLoop(LoopConfig{QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(stopped)
	}()
	if err := loop.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	cancel()
	<-stopped

	posted := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			loop.Post(func() { t.Error("task ran after stop") })
		}
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("Post() blocked after loop stopped")
	}
	if got := loop.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
	if err := loop.Call(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Call() error = %v, want %v", err, ErrStopped)
	}
	if loop.Running() {
		t.Error("Running() = true after stop")
	}
}
