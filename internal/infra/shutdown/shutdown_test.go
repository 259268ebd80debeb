package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(5*time.Second, nil)
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
	if h.logger == nil {
		t.Error("logger should default")
	}

	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func TestHandler_Shutdown_ReverseOrder(t *testing.T) {
	h := NewHandler(5*time.Second, discardLogger())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"store", "committer", "http"} {
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"http", "committer", "store"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Shutdown")
	}
}

func TestHandler_Shutdown_JoinsErrors(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var ran bool
	h.OnShutdown("ok", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("b", func(context.Context) error { return errB })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() error = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook must not stop later hooks")
	}
}

func TestHandler_Shutdown_Once(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())
	errA := errors.New("a failed")

	calls := 0
	h.OnShutdown("a", func(context.Context) error { calls++; return errA })

	first := h.Shutdown()
	second := h.Shutdown()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	if !errors.Is(first, errA) || !errors.Is(second, errA) {
		t.Errorf("Shutdown() errors = %v, %v", first, second)
	}
}

func TestHandler_Shutdown_Timeout(t *testing.T) {
	h := NewHandler(50*time.Millisecond, discardLogger())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := h.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("hook context did not honor the timeout")
	}
}

func TestHandler_Wait_Context(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())
	called := make(chan struct{})
	h.OnShutdown("hook", func(context.Context) error {
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after context cancel")
	}
	<-called
}

func TestHandler_Wait_WithSignal(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())
	called := make(chan struct{})
	h.OnShutdown("hook", func(context.Context) error {
		close(called)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()

	// Give Wait time to install the signal handler.
	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("hook not called after SIGTERM")
	}
	if err := <-errCh; err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
