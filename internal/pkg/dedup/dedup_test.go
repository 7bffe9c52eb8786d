package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentCallersShareOneCall(t *testing.T) {
	d := New[int](0)

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	type result struct {
		v       int
		outcome Outcome
	}

	const n = 10
	results := make(chan result, n)
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			started.Done()
			v, outcome, err := d.Do(context.Background(), false, fn)
			if err != nil {
				t.Errorf("unexpected err=%v", err)
			}
			results <- result{v, outcome}
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)

	executed := 0
	for i := 0; i < n; i++ {
		r := <-results
		if r.v != 42 {
			t.Fatalf("caller got %d, want 42", r.v)
		}
		switch r.outcome {
		case Executed:
			executed++
		case Joined:
		default:
			t.Fatalf("unexpected outcome %v", r.outcome)
		}
	}
	// Exactly one caller owns the call; everyone else joined it.
	if executed != 1 {
		t.Fatalf("%d callers observed Executed, want 1", executed)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

func TestMinIntervalSkips(t *testing.T) {
	d := New[string](time.Hour)

	fn := func(ctx context.Context) (string, error) { return "ok", nil }

	if _, outcome, _ := d.Do(context.Background(), false, fn); outcome != Executed {
		t.Fatalf("first call outcome = %v, want Executed", outcome)
	}
	if _, outcome, _ := d.Do(context.Background(), false, fn); outcome != Skipped {
		t.Fatalf("second call inside the interval = %v, want Skipped", outcome)
	}

	// force bypasses the interval check.
	if v, outcome, _ := d.Do(context.Background(), true, fn); outcome != Executed || v != "ok" {
		t.Fatalf("forced call outcome=%v v=%q", outcome, v)
	}
}

func TestResetClearsInterval(t *testing.T) {
	d := New[string](time.Hour)
	fn := func(ctx context.Context) (string, error) { return "ok", nil }

	d.Do(context.Background(), false, fn)
	d.Reset()
	if _, outcome, _ := d.Do(context.Background(), false, fn); outcome != Executed {
		t.Fatalf("call after Reset = %v, want Executed", outcome)
	}
}

func TestFailureAlsoRecordsCompletion(t *testing.T) {
	d := New[string](time.Hour)
	boom := func(ctx context.Context) (string, error) { return "", context.DeadlineExceeded }

	if _, _, err := d.Do(context.Background(), false, boom); err == nil {
		t.Fatal("expected error")
	}
	// The failed completion still arms the interval: next call is skipped.
	if _, outcome, _ := d.Do(context.Background(), false, boom); outcome != Skipped {
		t.Fatalf("call after failed completion = %v, want Skipped", outcome)
	}
}
