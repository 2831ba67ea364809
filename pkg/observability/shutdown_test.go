package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), time.Second)

	var order []string
	for _, name := range []string{"http", "redis", "postgres"} {
		name := name
		sm.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	sm.Register("ignored", nil)

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"postgres", "redis", "http"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestShutdownManager_ContinuesAfterError(t *testing.T) {
	sm := NewShutdownManager(nil, 0)
	if sm.timeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %v", sm.timeout)
	}

	errBoom := errors.New("boom")
	ran := false
	sm.Register("first", func(context.Context) error {
		ran = true
		return nil
	})
	sm.Register("second", func(context.Context) error { return errBoom })

	err := sm.Shutdown(context.Background())
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected joined error to contain boom, got %v", err)
	}
	if !ran {
		t.Error("Expected first step to run after second failed")
	}
}

func TestShutdownManager_RunsOnce(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), time.Second)

	calls := 0
	sm.Register("counter", func(context.Context) error {
		calls++
		return nil
	})

	_ = sm.Shutdown(context.Background())
	_ = sm.Shutdown(context.Background())

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestShutdownManager_DeadlinePropagates(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), 10*time.Millisecond)

	sm.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := sm.Shutdown(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
