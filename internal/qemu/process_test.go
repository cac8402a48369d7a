package qemu

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// captureListener records the console stream and exit events.
type captureListener struct {
	mu      sync.Mutex
	out     []byte
	exits   int
	exitErr error
	exited  chan struct{}
}

func newCaptureListener() *captureListener {
	return &captureListener{exited: make(chan struct{})}
}

func (l *captureListener) OnOutput(data []byte) {
	l.mu.Lock()
	l.out = append(l.out, data...)
	l.mu.Unlock()
}

func (l *captureListener) OnExit(err error) {
	l.mu.Lock()
	l.exits++
	l.exitErr = err
	first := l.exits == 1
	l.mu.Unlock()
	if first {
		close(l.exited)
	}
}

func (l *captureListener) output() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.out)
}

func (l *captureListener) exitError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exitErr
}

func (l *captureListener) exitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exits
}

func (l *captureListener) waitExit(t *testing.T) {
	t.Helper()
	select {
	case <-l.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for process exit")
	}
}

func skipWithoutUnixTools(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test drives standard unix binaries")
	}
}

func TestStartProcessMissingBinary(t *testing.T) {
	_, err := StartProcess(context.Background(), "definitely-not-on-path-4f1a", &Descriptor{}, nil, zap.NewNop())
	if !errors.Is(err, ErrMissingBinary) {
		t.Fatalf("error = %v, want ErrMissingBinary", err)
	}
}

func TestProcessCleanExit(t *testing.T) {
	skipWithoutUnixTools(t)

	listener := newCaptureListener()
	proc, err := StartProcess(context.Background(), "true", &Descriptor{}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	proc.SetListener(listener)

	listener.waitExit(t)
	if listener.exitCount() != 1 {
		t.Errorf("exit notifications = %d, want exactly 1", listener.exitCount())
	}
	if err := listener.exitError(); err != nil {
		t.Errorf("clean exit reported error: %v", err)
	}
}

func TestProcessLateListenerStillGetsExit(t *testing.T) {
	skipWithoutUnixTools(t)

	proc, err := StartProcess(context.Background(), "true", &Descriptor{}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	// Let the process die with no listener installed.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, werr := proc.Write([]byte("\n")); errors.Is(werr, ErrNotRunning) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("process never exited")
		}
		time.Sleep(10 * time.Millisecond)
	}

	listener := newCaptureListener()
	proc.SetListener(listener)

	listener.waitExit(t)
	if listener.exitCount() != 1 {
		t.Errorf("exit notifications = %d, want exactly 1", listener.exitCount())
	}
	if err := listener.exitError(); err != nil {
		t.Errorf("clean exit reported error: %v", err)
	}
}

func TestProcessPumpAndTerminate(t *testing.T) {
	skipWithoutUnixTools(t)

	// cat echoes its stdin, so console input round-trips to the listener.
	listener := newCaptureListener()
	proc, err := StartProcess(context.Background(), "cat", &Descriptor{}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	proc.SetListener(listener)

	if _, err := proc.Write([]byte("console ping\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(listener.output(), "console ping") {
		if time.Now().After(deadline) {
			t.Fatalf("output pump never delivered input echo, got %q", listener.output())
		}
		time.Sleep(10 * time.Millisecond)
	}

	proc.Terminate()
	listener.waitExit(t)

	// The kill must surface as a single exit event, and the handle must
	// refuse input afterwards.
	if listener.exitCount() != 1 {
		t.Errorf("exit notifications = %d, want exactly 1", listener.exitCount())
	}
	if _, err := proc.Write([]byte("late")); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Write after exit = %v, want ErrNotRunning", err)
	}

	// Terminating an already-dead process is a no-op.
	proc.Terminate()
	if listener.exitCount() != 1 {
		t.Errorf("exit notifications after double terminate = %d, want 1", listener.exitCount())
	}
}
