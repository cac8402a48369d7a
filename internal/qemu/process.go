package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Listener receives the byte stream and lifecycle events of a VM process.
// Callbacks fire on the process reader goroutine, except the held-exit
// case documented on SetListener.
type Listener interface {
	// OnOutput is called with each chunk read from the VM console.
	// The slice is only valid for the duration of the call.
	OnOutput(data []byte)

	// OnExit is called exactly once when the process terminates.
	// err is nil for a clean exit.
	OnExit(err error)
}

// Process is a handle to one running VM emulator process. It owns the
// process's stdin/stdout; console I/O goes through Write and the Listener.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	log   *zap.Logger

	mu            sync.Mutex
	listener      Listener
	running       bool
	exitErr       error
	exited        bool
	exitDelivered bool
}

// StartProcess launches the emulator binary with the given descriptor and
// environment and begins pumping its console output. The caller should
// install a listener with SetListener immediately; output read before a
// listener is installed is dropped (the UI performs a full refresh on
// attach, so nothing is queued).
func StartProcess(ctx context.Context, binary string, desc *Descriptor, env []string, log *zap.Logger) (*Process, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingBinary, binary)
	}

	cmd := exec.CommandContext(ctx, path, desc.Args()...)
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	// The serial console is multiplexed onto stdout only.
	cmd.Stderr = cmd.Stdout

	log.Info("starting VM process",
		zap.String("binary", path),
		zap.String("args", desc.String()))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start VM process: %w", err)
	}

	p := &Process{
		cmd:     cmd,
		stdin:   stdin,
		log:     log,
		running: true,
	}
	go p.pump(stdout)
	return p, nil
}

// SetListener installs the event listener. Passing nil detaches the
// current listener. Last writer wins.
//
// A process can die before any listener is installed; the exit event is
// held and handed to the first listener to arrive, so OnExit fires
// exactly once no matter how the install and the exit interleave. In
// that case the callback runs on the caller's goroutine.
func (p *Process) SetListener(l Listener) {
	p.mu.Lock()
	p.listener = l
	deliver := l != nil && p.exited && !p.exitDelivered
	if deliver {
		p.exitDelivered = true
	}
	err := p.exitErr
	p.mu.Unlock()

	if deliver {
		l.OnExit(err)
	}
}

// Write sends input bytes to the VM console.
func (p *Process) Write(data []byte) (int, error) {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return 0, ErrNotRunning
	}
	return p.stdin.Write(data)
}

// Terminate kills the VM process. The listener's OnExit still fires once
// the process has gone away.
func (p *Process) Terminate() {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil {
		p.log.Warn("kill VM process", zap.Error(err))
	}
}

// pump reads console output until the process exits, then reaps it.
func (p *Process) pump(stdout io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			p.mu.Lock()
			l := p.listener
			p.mu.Unlock()
			if l != nil {
				l.OnOutput(buf[:n])
			}
		}
		if err != nil {
			break
		}
	}

	waitErr := p.cmd.Wait()
	if waitErr != nil {
		p.log.Info("VM process exited", zap.Error(waitErr))
	} else {
		p.log.Info("VM process exited cleanly")
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		waitErr = fmt.Errorf("wait VM process: %w", waitErr)
	}

	p.mu.Lock()
	p.running = false
	p.exited = true
	p.exitErr = waitErr
	l := p.listener
	deliver := l != nil && !p.exitDelivered
	if deliver {
		p.exitDelivered = true
	}
	p.mu.Unlock()

	_ = p.stdin.Close()

	if deliver {
		l.OnExit(waitErr)
	}
}
