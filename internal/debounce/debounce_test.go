package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBurstFiresOnce(t *testing.T) {
	const wait = 80 * time.Millisecond

	var calls atomic.Int32
	var last atomic.Value
	var firedAt atomic.Value

	d := New(wait, func(v string) {
		calls.Add(1)
		last.Store(v)
		firedAt.Store(time.Now())
	})

	var lastCall time.Time
	for _, v := range []string{"n", "no", "noi", "noid", "noida"} {
		d.Call(v)
		lastCall = time.Now()
		time.Sleep(wait / 4)
	}

	time.Sleep(3 * wait)

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 call, got %d", got)
	}
	if got := last.Load().(string); got != "noida" {
		t.Errorf("expected trailing value 'noida', got %q", got)
	}
	if elapsed := firedAt.Load().(time.Time).Sub(lastCall); elapsed < wait {
		t.Errorf("fired %v after last call, expected at least %v", elapsed, wait)
	}
}

func TestSeparatedCallsFireEach(t *testing.T) {
	const wait = 20 * time.Millisecond

	var calls atomic.Int32
	d := New(wait, func(int) { calls.Add(1) })

	d.Call(1)
	time.Sleep(5 * wait)
	d.Call(2)
	time.Sleep(5 * wait)

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestStopCancelsPending(t *testing.T) {
	const wait = 20 * time.Millisecond

	var calls atomic.Int32
	d := New(wait, func(int) { calls.Add(1) })

	d.Call(1)
	if !d.Pending() {
		t.Error("expected pending call after Call")
	}
	d.Stop()
	d.Call(2) // ignored after Stop

	time.Sleep(5 * wait)

	if got := calls.Load(); got != 0 {
		t.Errorf("expected no calls after Stop, got %d", got)
	}
	if d.Pending() {
		t.Error("expected nothing pending after Stop")
	}
}

func TestFlush(t *testing.T) {
	var mu sync.Mutex
	var got []string
	d := New(time.Hour, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	if d.Flush() {
		t.Error("Flush with nothing pending should return false")
	}

	d.Call("a")
	d.Call("b")
	if !d.Flush() {
		t.Fatal("Flush should report a pending call")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestConcurrentCalls(t *testing.T) {
	const wait = 30 * time.Millisecond

	var calls atomic.Int32
	d := New(wait, func(int) { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Call(i)
		}(i)
	}
	wg.Wait()

	time.Sleep(5 * wait)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call from a concurrent burst, got %d", got)
	}
}
