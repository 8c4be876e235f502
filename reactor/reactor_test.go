package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

type recordingWatcher struct {
	fired chan uint32
}

func newRecordingWatcher() *recordingWatcher {
	return &recordingWatcher{fired: make(chan uint32, 8)}
}

func (w *recordingWatcher) Invoke(mask uint32) {
	w.fired <- mask
}

func TestRegisterIOFiresOnReadiness(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	w := newRecordingWatcher()
	if err := r.RegisterIO(fds[0], unix.EPOLLIN, w); err != nil {
		t.Fatalf("RegisterIO: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := r.Run(RunOnce); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case mask := <-w.fired:
		if mask&unix.EPOLLIN == 0 {
			t.Fatalf("expected EPOLLIN bit set, got %x", mask)
		}
	default:
		t.Fatal("watcher was not invoked")
	}
}

func TestUnregisterIOStopsDelivery(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	w := newRecordingWatcher()
	if err := r.RegisterIO(fds[0], unix.EPOLLIN, w); err != nil {
		t.Fatalf("RegisterIO: %v", err)
	}
	if err := r.UnregisterIO(fds[0]); err != nil {
		t.Fatalf("UnregisterIO: %v", err)
	}

	unix.Write(fds[1], []byte("x"))
	if err := r.Run(RunNoWait); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case mask := <-w.fired:
		t.Fatalf("expected no invocation after unregister, got mask %x", mask)
	default:
	}
}

func TestTimerFiresAfterDeadline(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	w := newRecordingWatcher()
	r.timers.Add(10*time.Millisecond, 0, w)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := r.Run(RunDefault); err != nil {
			t.Fatalf("Run: %v", err)
		}
		select {
		case <-w.fired:
			return
		default:
		}
	}
	t.Fatal("timer never fired within 1s")
}

func TestRepeatingTimerFiresMultipleTimes(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	w := newRecordingWatcher()
	r.timers.Add(5*time.Millisecond, 5*time.Millisecond, w)

	deadline := time.Now().Add(time.Second)
	count := 0
	for time.Now().Before(deadline) && count < 3 {
		r.Run(RunDefault)
		select {
		case <-w.fired:
			count++
		default:
		}
	}
	if count < 3 {
		t.Fatalf("expected at least 3 firings, got %d", count)
	}
}

func TestCancelledTimerDoesNotFire(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	w := newRecordingWatcher()
	h := r.timers.Add(5*time.Millisecond, 0, w)
	r.timers.Cancel(h)

	time.Sleep(20 * time.Millisecond)
	r.Run(RunNoWait)

	select {
	case <-w.fired:
		t.Fatal("cancelled timer fired")
	default:
	}
}

func TestPostRunsOnNextRunCall(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	done := make(chan struct{})
	r.Post(func() { close(done) })

	if err := r.Run(RunNoWait); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-done:
	default:
		t.Fatal("posted function did not run during Run")
	}
}

func TestPostFromAnotherGoroutineWakesRun(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Post(func() { close(done) })
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := r.Run(RunDefault); err != nil {
			t.Fatalf("Run: %v", err)
		}
		select {
		case <-done:
			return
		default:
		}
	}
	t.Fatal("posted function from another goroutine never ran within 1s")
}
