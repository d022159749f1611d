package generation

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestRunBounded_SingleItemSkipsSemaphore(t *testing.T) {
	var calls int32
	results := runBounded(context.Background(), []int{7}, 4, func(ctx context.Context, item int, index int) int {
		atomic.AddInt32(&calls, 1)
		return item * 2
	})
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
	if len(results) != 1 || results[0] != 14 {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestRunBounded_EmptyItemsReturnsEmptyResults(t *testing.T) {
	results := runBounded(context.Background(), []int{}, 3, func(ctx context.Context, item int, index int) int {
		t.Fatal("fn should never be called for an empty item list")
		return 0
	})
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}

func TestRunBounded_PreservesOrderAndRunsAll(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}
	results := runBounded(context.Background(), items, 2, func(ctx context.Context, item int, index int) int {
		return item + index
	})
	want := []int{10, 21, 32, 43, 54}
	for i, w := range want {
		if results[i] != w {
			t.Errorf("index %d: got %d, want %d", i, results[i], w)
		}
	}
}

func TestRunBounded_NeverExceedsMaxParallel(t *testing.T) {
	var current, peak int32
	items := make([]int, 20)
	runBounded(context.Background(), items, 3, func(ctx context.Context, item int, index int) int {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&current, -1)
		return 0
	})
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent goroutines, observed %d", peak)
	}
}

func TestRunBounded_IsolatesPerItemFailure(t *testing.T) {
	items := []int{1, 2, 3}
	results := runBounded(context.Background(), items, 3, func(ctx context.Context, item int, index int) error {
		if item == 2 {
			return errTestFailure
		}
		return nil
	})
	if results[0] != nil || results[2] != nil {
		t.Errorf("expected siblings of a failing item to succeed, got %v", results)
	}
	if results[1] != errTestFailure {
		t.Errorf("expected item 2 to carry its own error, got %v", results[1])
	}
}

var errTestFailure = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
